//go:build linux

package genericlinux

import (
	"github.com/mkch/gpio"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/gpio/components/board"
)

// DefaultGPIOChip is the character device of the SoC's GPIO controller.
const DefaultGPIOChip = "/dev/gpiochip0"

const lineConsumer = "gpio-wfi"

var lineEdges = map[board.Edge]gpio.EventFlag{
	board.EdgeRising:  gpio.RisingEdge,
	board.EdgeFalling: gpio.FallingEdge,
	board.EdgeBoth:    gpio.BothEdges,
}

// ChipEdgeSource waits for edges through line events of the gpiochip device, indirectly by way of
// mkch's gpio package. Line offsets on the SoC's chip are BCM numbers.
type ChipEdgeSource struct {
	devicePath string
}

// NewChipEdgeSource returns an edge source on the chip at devicePath.
func NewChipEdgeSource(devicePath string) *ChipEdgeSource {
	if devicePath == "" {
		devicePath = DefaultGPIOChip
	}
	return &ChipEdgeSource{devicePath: devicePath}
}

// ArmEdge requests pin as an input line reporting edge.
func (c *ChipEdgeSource) ArmEdge(pin board.CanonicalPin, edge board.Edge) (EdgeWaiter, error) {
	flags, ok := lineEdges[edge]
	if !ok {
		return nil, errors.Wrapf(board.ErrSetupFailed, "cannot wait for edge %s", edge)
	}
	chip, err := gpio.OpenChip(c.devicePath)
	if err != nil {
		return nil, board.NewIOError(err, "open "+c.devicePath)
	}
	// The line keeps its own descriptor once requested.
	defer goutils.UncheckedErrorFunc(chip.Close)

	line, err := chip.OpenLineWithEvents(uint32(pin), gpio.Input, flags, lineConsumer)
	if err != nil {
		return nil, board.NewIOError(err, "request line "+pin.String())
	}
	return &chipWaiter{pin: pin, line: line}, nil
}

type chipWaiter struct {
	pin  board.CanonicalPin
	line *gpio.LineWithEvent
}

func (w *chipWaiter) WaitForEdge() (EdgeEvent, error) {
	event, ok := <-w.line.Events()
	if !ok || event == nil {
		return EdgeEvent{}, errors.Wrapf(board.ErrIOFailure, "event stream of %s closed", w.pin)
	}
	return EdgeEvent{Pin: w.pin, Rising: event.RisingEdge, Time: event.Time}, nil
}

func (w *chipWaiter) Close() error {
	return w.line.Close()
}
