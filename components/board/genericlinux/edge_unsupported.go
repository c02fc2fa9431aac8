//go:build !linux

package genericlinux

import (
	"github.com/pkg/errors"

	"go.viam.com/gpio/components/board"
)

// DefaultGPIOChip is the character device of the SoC's GPIO controller.
const DefaultGPIOChip = "/dev/gpiochip0"

// ArmEdge is only available on Linux.
func (s *Sysfs) ArmEdge(pin board.CanonicalPin, edge board.Edge) (EdgeWaiter, error) {
	return nil, errors.Wrap(board.ErrCapabilityUnsupported, "edge interrupts need linux")
}

// ChipEdgeSource is only available on Linux.
type ChipEdgeSource struct{}

// NewChipEdgeSource returns an edge source that always fails.
func NewChipEdgeSource(devicePath string) *ChipEdgeSource {
	return &ChipEdgeSource{}
}

// ArmEdge is only available on Linux.
func (c *ChipEdgeSource) ArmEdge(pin board.CanonicalPin, edge board.Edge) (EdgeWaiter, error) {
	return nil, errors.Wrap(board.ErrCapabilityUnsupported, "gpiochip events need linux")
}
