// Package piimpl is the Raspberry Pi board: it translates pin numbers under the chosen scheme,
// keeps the pin state registry, and dispatches each operation to the register or sysfs backend.
package piimpl

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"periph.io/x/conn/v3/physic"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/components/board/genericlinux"
	"go.viam.com/gpio/components/board/pi/bcm283x"
	picommon "go.viam.com/gpio/components/board/pi/common"
	"go.viam.com/gpio/config"
	"go.viam.com/gpio/logging"
)

const (
	blinkPeriod = 500 * time.Millisecond
	// The GPIO that switches the USB current limit on boards that have one.
	usbPowerPin = board.CanonicalPin(38)
	bytePins    = 8
)

// Models whose USB current limit is switchable.
var usbPowerModels = []string{"Model B+", "Pi 2 Model B"}

// Deps are the parts a Board is built from.
type Deps struct {
	Scheme board.NumberingScheme
	// Descriptor may only be nil for SchemeUninitialized.
	Descriptor *picommon.Descriptor
	Registers  board.Registers
	Sysfs      *genericlinux.Sysfs
	EdgeSource genericlinux.EdgeSource
	Modules    *genericlinux.Modules
	Clock      clock.Clock
	Logger     logging.Logger
}

// Board is a Raspberry Pi addressed under one numbering scheme, fixed at construction.
type Board struct {
	scheme     board.NumberingScheme
	desc       *picommon.Descriptor
	layout     *picommon.Layout
	regs       board.Registers
	pins       *PinStateRegistry
	sysfs      *genericlinux.Sysfs
	interrupts *genericlinux.Dispatcher
	modules    *genericlinux.Modules
	clock      clock.Clock
	logger     logging.Logger
}

// NewBoard assembles a board from already opened parts.
func NewBoard(deps Deps) (*Board, error) {
	if deps.Registers == nil {
		return nil, errors.New("board needs a register backend")
	}
	if deps.Descriptor == nil && deps.Scheme != board.SchemeUninitialized {
		return nil, errors.Errorf("%s numbering needs a board descriptor", deps.Scheme)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	b := &Board{
		scheme:  deps.Scheme,
		desc:    deps.Descriptor,
		regs:    deps.Registers,
		pins:    NewPinStateRegistry(deps.Registers),
		sysfs:   deps.Sysfs,
		modules: deps.Modules,
		clock:   deps.Clock,
		logger:  deps.Logger,
	}
	if deps.Descriptor != nil {
		b.layout = deps.Descriptor.LayoutTable()
	}
	if deps.EdgeSource != nil {
		b.interrupts = genericlinux.NewDispatcher(deps.EdgeSource, deps.Logger.Sublogger("interrupts"))
	}
	return b, nil
}

// Open builds the board described by conf. The board is identified once per process; with the
// uninitialized scheme it is not identified at all and only sysfs operations work.
func Open(conf *config.Config, logger logging.Logger) (*Board, error) {
	scheme := conf.Scheme()
	sysfs := genericlinux.NewSysfs(conf.SysfsRoot, logger.Sublogger("sysfs"))
	deps := Deps{
		Scheme:     scheme,
		Sysfs:      sysfs,
		EdgeSource: sysfs,
		Modules:    genericlinux.NewModules(conf.ProcModules, logger.Sublogger("modules")),
		Clock:      clock.New(),
		Logger:     logger,
	}
	if conf.InterruptBackend == config.InterruptChardev {
		deps.EdgeSource = genericlinux.NewChipEdgeSource(conf.GPIOChip)
	}

	if scheme == board.SchemeUninitialized {
		deps.Registers = bcm283x.Unavailable(errors.New("the numbering scheme is uninitialized"))
		return NewBoard(deps)
	}

	src := picommon.CPUInfoRevision
	if conf.Revision != "" {
		src = picommon.FixedRevision(conf.Revision)
	}
	desc, err := picommon.ResolveBoard(src)
	if err != nil {
		return nil, err
	}
	logger.Debugw("board identified", "board", desc.String(), "layout", desc.Layout.String())

	mapConf := bcm283x.DefaultMapConfig()
	if conf.MemPath != "" {
		mapConf.MemPath = conf.MemPath
	}
	if conf.GPIOMemPath != "" {
		mapConf.GPIOMemPath = conf.GPIOMemPath
	}
	if conf.RangesPath != "" {
		mapConf.RangesPath = conf.RangesPath
	}
	deps.Descriptor = desc
	deps.Registers = bcm283x.Open(desc, mapConf, logger.Sublogger("registers"))
	return NewBoard(deps)
}

// Scheme returns the numbering scheme pins are given in.
func (b *Board) Scheme() board.NumberingScheme {
	return b.scheme
}

// Descriptor returns the identified board, or nil under the uninitialized scheme.
func (b *Board) Descriptor() *picommon.Descriptor {
	return b.desc
}

// Registry returns the pin state registry.
func (b *Board) Registry() *PinStateRegistry {
	return b.pins
}

// Sysfs returns the sysfs backend.
func (b *Board) Sysfs() *genericlinux.Sysfs {
	return b.sysfs
}

// Modules returns the kernel module helper.
func (b *Board) Modules() *genericlinux.Modules {
	return b.modules
}

// Translate converts a pin number under the board's scheme to its canonical pin.
func (b *Board) Translate(pin int) (board.CanonicalPin, error) {
	if b.scheme == board.SchemeUninitialized {
		return 0, errors.Wrap(board.ErrHardwareUnavailable, "pins cannot be addressed without a numbering scheme")
	}
	return picommon.Translate(pin, b.scheme, b.layout)
}

// SetPinMode applies a mode keyword to pin. The keyword is checked before the pin is touched.
func (b *Board) SetPinMode(pin int, keyword string) error {
	req, err := board.ParseModeKeyword(keyword)
	if err != nil {
		return err
	}
	canonical, err := b.Translate(pin)
	if err != nil {
		return err
	}
	if req.IsPull {
		return b.pins.SetPull(canonical, req.Pull)
	}
	return b.pins.SetMode(canonical, req.Mode)
}

// HardwareMode reads the function select of pin from the hardware.
func (b *Board) HardwareMode(pin int) (board.PinMode, error) {
	canonical, err := b.Translate(pin)
	if err != nil {
		return board.ModeInput, err
	}
	return b.regs.Mode(canonical)
}

// DigitalRead returns the level of pin.
func (b *Board) DigitalRead(pin int) (bool, error) {
	canonical, err := b.Translate(pin)
	if err != nil {
		return false, err
	}
	return b.regs.DigitalRead(canonical)
}

// DigitalWrite drives pin high or low.
func (b *Board) DigitalWrite(pin int, high bool) error {
	canonical, err := b.Translate(pin)
	if err != nil {
		return err
	}
	return b.regs.DigitalWrite(canonical, high)
}

// Toggle inverts the level of pin and returns the new level.
func (b *Board) Toggle(pin int) (bool, error) {
	canonical, err := b.Translate(pin)
	if err != nil {
		return false, err
	}
	return b.toggle(canonical)
}

func (b *Board) toggle(pin board.CanonicalPin) (bool, error) {
	high, err := b.regs.DigitalRead(pin)
	if err != nil {
		return false, err
	}
	return !high, b.regs.DigitalWrite(pin, !high)
}

// Blink makes pin an output and toggles it every half second until ctx is done.
func (b *Board) Blink(ctx context.Context, pin int) error {
	canonical, err := b.Translate(pin)
	if err != nil {
		return err
	}
	if err := b.pins.SetMode(canonical, board.ModeOutput); err != nil {
		return err
	}
	b.logger.Debugw("blinking", "pin", canonical.String(), "period", blinkPeriod.String())

	ticker := b.clock.Ticker(blinkPeriod)
	defer ticker.Stop()
	for {
		if _, err := b.toggle(canonical); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// AnalogRead reads an analog input.
func (b *Board) AnalogRead(pin int) (int, error) {
	canonical, err := b.Translate(pin)
	if err != nil {
		return 0, err
	}
	return b.regs.AnalogRead(canonical)
}

// AnalogWrite writes an analog output.
func (b *Board) AnalogWrite(pin, value int) error {
	canonical, err := b.Translate(pin)
	if err != nil {
		return err
	}
	return b.regs.AnalogWrite(canonical, value)
}

// PWMWrite sets the duty value of the PWM channel of pin.
func (b *Board) PWMWrite(pin int, value uint32) error {
	canonical, err := b.Translate(pin)
	if err != nil {
		return err
	}
	return b.regs.PWMWrite(canonical, value)
}

// PWMToneWrite plays a tone of freqHz on pin. A tone reprograms the shared PWM range, which the
// registry follows.
func (b *Board) PWMToneWrite(pin, freqHz int) error {
	canonical, err := b.Translate(pin)
	if err != nil {
		return err
	}
	if err := b.regs.PWMToneWrite(canonical, freqHz); err != nil {
		return err
	}
	if freqHz > 0 {
		b.pins.RecordPWMRange(bcm283x.ToneRange(freqHz))
	}
	return nil
}

// SetPWMMode switches both PWM channels to balanced or mark:space.
func (b *Board) SetPWMMode(mode board.PWMMode) error {
	return b.regs.SetPWMMode(mode)
}

// SetPWMRange sets the range of both PWM channels.
func (b *Board) SetPWMRange(rng uint32) error {
	if err := b.regs.SetPWMRange(rng); err != nil {
		return err
	}
	b.pins.RecordPWMRange(rng)
	return nil
}

// SetPWMClock sets the PWM clock divisor.
func (b *Board) SetPWMClock(divisor uint32) error {
	if err := b.regs.SetPWMClock(divisor); err != nil {
		return err
	}
	b.pins.RecordPWMClock(divisor)
	return nil
}

// ClockSet runs the general purpose clock of pin as close to freq as it can without exceeding it,
// and returns the frequency achieved.
func (b *Board) ClockSet(pin int, freq physic.Frequency) (physic.Frequency, error) {
	canonical, err := b.Translate(pin)
	if err != nil {
		return 0, err
	}
	actual, err := b.regs.ClockSet(canonical, freq)
	if err != nil {
		return 0, err
	}
	b.pins.RecordClockFrequency(canonical, actual)
	return actual, nil
}

// SetPadDrive sets the drive strength of a pad group.
func (b *Board) SetPadDrive(group, strength int) error {
	return b.regs.SetPadDrive(group, strength)
}

// ReadBank returns the raw level register of bank 0 or 1.
func (b *Board) ReadBank(bank int) (uint32, error) {
	return b.regs.ReadBank(bank)
}

func (b *Board) bytePin(bit int) (board.CanonicalPin, error) {
	if b.layout == nil {
		return 0, errors.Wrap(board.ErrHardwareUnavailable, "pins cannot be addressed without a numbering scheme")
	}
	return picommon.Translate(bit, board.SchemeWiringPi, b.layout)
}

// DigitalReadByte reads wiringPi pins 0-7 as a byte, pin 0 in the low bit.
func (b *Board) DigitalReadByte() (byte, error) {
	var value byte
	for bit := range bytePins {
		pin, err := b.bytePin(bit)
		if err != nil {
			return 0, err
		}
		high, err := b.regs.DigitalRead(pin)
		if err != nil {
			return 0, err
		}
		if high {
			value |= 1 << bit
		}
	}
	return value, nil
}

// DigitalWriteByte writes value to wiringPi pins 0-7, the low bit to pin 0.
func (b *Board) DigitalWriteByte(value byte) error {
	for bit := range bytePins {
		pin, err := b.bytePin(bit)
		if err != nil {
			return err
		}
		if err := b.regs.DigitalWrite(pin, value&(1<<bit) != 0); err != nil {
			return err
		}
	}
	return nil
}

// SetUSBPower selects the high (1.2A) or low (600mA) USB current limit. Only the B+ and Pi 2
// have the switch.
func (b *Board) SetUSBPower(high bool) error {
	if b.desc == nil || !lo.Contains(usbPowerModels, b.desc.Model) {
		return errors.Wrap(board.ErrCapabilityUnsupported, "USB power control is only on the B+ and Pi 2 Model B")
	}
	if err := b.regs.DigitalWrite(usbPowerPin, high); err != nil {
		return err
	}
	return b.pins.SetMode(usbPowerPin, board.ModeOutput)
}

// I2CBus is the i2c bus wired to the header: 0 on the first board revision, 1 since.
func (b *Board) I2CBus() int {
	if b.desc != nil && b.desc.Layout == picommon.LayoutRev1 {
		return 0
	}
	return 1
}

// I2CDetect scans the header's i2c bus, writing the i2cdetect table to out.
func (b *Board) I2CDetect(out io.Writer) error {
	if b.modules == nil {
		return errors.Wrap(board.ErrCapabilityUnsupported, "no kernel module support")
	}
	return b.modules.I2CDetect(b.I2CBus(), out)
}

// WaitForInterrupts arms pins for edgeName and calls cb as each fires. Call Wait on the result to
// block until every pin has fired once. Under the uninitialized scheme pins are BCM numbers.
func (b *Board) WaitForInterrupts(
	pins []int,
	edgeName string,
	cb genericlinux.InterruptCallback,
) (*genericlinux.InterruptRegistration, error) {
	if b.interrupts == nil {
		return nil, errors.Wrap(board.ErrCapabilityUnsupported, "no interrupt source")
	}
	edge, err := board.ParseEdge(edgeName)
	if err != nil {
		return nil, errors.Wrapf(board.ErrSetupFailed, "%v", err)
	}
	canonical, err := b.InterruptPins(pins)
	if err != nil {
		return nil, err
	}
	return b.interrupts.Arm(canonical, edge, cb)
}

// InterruptPins translates pins the way WaitForInterrupts does: through the active scheme, or
// as BCM numbers when the board was opened without hardware setup.
func (b *Board) InterruptPins(pins []int) ([]board.CanonicalPin, error) {
	canonical := make([]board.CanonicalPin, 0, len(pins))
	for _, pin := range pins {
		if b.scheme == board.SchemeUninitialized {
			canonical = append(canonical, board.CanonicalPin(pin))
			continue
		}
		c, err := b.Translate(pin)
		if err != nil {
			return nil, err
		}
		canonical = append(canonical, c)
	}
	return canonical, nil
}

// Close releases the register mapping.
func (b *Board) Close() error {
	return b.regs.Close()
}
