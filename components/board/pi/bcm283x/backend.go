// Package bcm283x drives the GPIO, PWM, general purpose clock and pad registers of the
// BCM2835/6/7 and BCM2711 directly, through a memory mapping of the peripheral.
package bcm283x

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/gpio/components/board"
	picommon "go.viam.com/gpio/components/board/pi/common"
	"go.viam.com/gpio/logging"
)

// Function select codes, three bits per pin.
var fselCodes = map[board.PinMode]uint32{
	board.ModeInput:  0b000,
	board.ModeOutput: 0b001,
	board.ModeAlt0:   0b100,
	board.ModeAlt1:   0b101,
	board.ModeAlt2:   0b110,
	board.ModeAlt3:   0b111,
	board.ModeAlt4:   0b011,
	board.ModeAlt5:   0b010,
}

var fselModes = func() map[uint32]board.PinMode {
	modes := make(map[uint32]board.PinMode, len(fselCodes))
	for mode, code := range fselCodes {
		modes[code] = mode
	}
	return modes
}()

// Pad control registers.
const (
	padsGPIO0      = 11
	padPassword    = 0x5a000000
	padDriveMask   = 0x7
	padHysteresis  = 0x08
	padSlewLimited = 0x10
	padKeepMask    = 0x00fffff8
)

const (
	pullSettle    = 5 * time.Microsecond
	functionDelay = 110 * time.Microsecond
)

// MapConfig says where register memory is found.
type MapConfig struct {
	// MemPath is the whole physical memory device, used when running as root.
	MemPath string
	// GPIOMemPath is the GPIO-only device usable without root.
	GPIOMemPath string
	// RangesPath holds the peripheral base address in the device tree.
	RangesPath string
}

// DefaultMapConfig returns the standard Raspberry Pi OS device paths.
func DefaultMapConfig() MapConfig {
	return MapConfig{
		MemPath:     "/dev/mem",
		GPIOMemPath: "/dev/gpiomem",
		RangesPath:  "/proc/device-tree/soc/ranges",
	}
}

// Backend performs register operations for one board. If mapping failed when it was created,
// every operation returns that failure.
type Backend struct {
	desc    *picommon.Descriptor
	win     *window
	initErr error
	clock   clock.Clock
	logger  logging.Logger
	closers []func() error
}

var _ board.Registers = (*Backend)(nil)

// Open maps the register blocks of the described board. Failure does not return an error here;
// it is cached and reported by every later call as ErrHardwareUnavailable.
func Open(desc *picommon.Descriptor, conf MapConfig, logger logging.Logger) *Backend {
	blocks, closer, err := mapBlocks(desc, conf, logger)
	if err != nil {
		logger.Debugw("register mapping failed", "error", err)
		return Unavailable(err)
	}
	backend := NewBackend(desc, blocks, clock.New(), logger)
	backend.closers = append(backend.closers, closer)
	return backend
}

// NewBackend wraps already mapped blocks. Blocks may be missing; operations needing them fail.
func NewBackend(
	desc *picommon.Descriptor,
	blocks map[Block]Words,
	clk clock.Clock,
	logger logging.Logger,
) *Backend {
	return &Backend{
		desc:   desc,
		win:    newWindow(blocks),
		clock:  clk,
		logger: logger,
	}
}

// Unavailable returns a backend on which every operation fails with cause.
func Unavailable(cause error) *Backend {
	return &Backend{initErr: errors.Wrapf(board.ErrHardwareUnavailable, "register access: %v", cause)}
}

// Err returns the cached initialisation failure, if any.
func (b *Backend) Err() error {
	return b.initErr
}

func (b *Backend) ready(pin board.CanonicalPin) error {
	if b.initErr != nil {
		return b.initErr
	}
	if !pin.Valid() {
		return board.NewInvalidPinError(int(pin), board.SchemeBCM)
	}
	return nil
}

// SetMode selects the function of pin. PWM and clock modes pick the pin's alternate function
// for that peripheral and start it with wiringPi's defaults.
func (b *Backend) SetMode(pin board.CanonicalPin, mode board.PinMode) error {
	if err := b.ready(pin); err != nil {
		return err
	}
	switch mode {
	case board.ModePWMOutput, board.ModePWMTone:
		return b.setPWMFunction(pin, mode)
	case board.ModeGPIOClock:
		return b.setClockFunction(pin)
	default:
		code, ok := fselCodes[mode]
		if !ok {
			return errors.Wrapf(board.ErrInvalidArgument, "unknown pin mode %s", mode)
		}
		return b.setFunction(pin, code)
	}
}

func (b *Backend) setFunction(pin board.CanonicalPin, code uint32) error {
	addr, err := b.win.pinRegister(FunctionSelect, pin)
	if err != nil {
		return err
	}
	b.win.modify(addr, code)
	return nil
}

// Mode reads the function select of pin.
func (b *Backend) Mode(pin board.CanonicalPin) (board.PinMode, error) {
	if err := b.ready(pin); err != nil {
		return board.ModeInput, err
	}
	addr, err := b.win.pinRegister(FunctionSelect, pin)
	if err != nil {
		return board.ModeInput, err
	}
	return fselModes[b.win.field(addr)], nil
}

// SetPull sets the pull resistor of pin.
func (b *Backend) SetPull(pin board.CanonicalPin, pull board.PullMode) error {
	if err := b.ready(pin); err != nil {
		return err
	}
	if b.desc.Processor == picommon.BCM2711 {
		return b.setPull2711(pin, pull)
	}
	return b.setPullLegacy(pin, pull)
}

// BCM2711 has a pull field per pin; note up and down are the other way round from GPPUD.
func (b *Backend) setPull2711(pin board.CanonicalPin, pull board.PullMode) error {
	codes := map[board.PullMode]uint32{board.PullOff: 0, board.PullUp: 1, board.PullDown: 2}
	code, ok := codes[pull]
	if !ok {
		return errors.Wrapf(board.ErrInvalidArgument, "unknown pull %s", pull)
	}
	addr, err := b.win.pinRegister(PullControl2711, pin)
	if err != nil {
		return err
	}
	b.win.modify(addr, code)
	return nil
}

// Older chips latch GPPUD into the pins whose GPPUDCLK bit is strobed. The sequence shares GPPUD
// with every other pin so it runs under the register lock.
func (b *Backend) setPullLegacy(pin board.CanonicalPin, pull board.PullMode) error {
	codes := map[board.PullMode]uint32{board.PullOff: 0, board.PullDown: 1, board.PullUp: 2}
	code, ok := codes[pull]
	if !ok {
		return errors.Wrapf(board.ErrInvalidArgument, "unknown pull %s", pull)
	}
	control, err := b.win.wholeWord(GPIOBlock, gppud)
	if err != nil {
		return err
	}
	strobe, err := b.win.pinRegister(PullClock, pin)
	if err != nil {
		return err
	}

	registerMu.Lock()
	defer registerMu.Unlock()
	b.win.store(control, code)
	b.clock.Sleep(pullSettle)
	b.win.store(strobe, 1<<strobe.shift)
	b.clock.Sleep(pullSettle)
	b.win.store(control, 0)
	b.win.store(strobe, 0)
	return nil
}

// DigitalRead returns the level of pin.
func (b *Backend) DigitalRead(pin board.CanonicalPin) (bool, error) {
	if err := b.ready(pin); err != nil {
		return false, err
	}
	addr, err := b.win.pinRegister(Level, pin)
	if err != nil {
		return false, err
	}
	return b.win.field(addr) != 0, nil
}

// DigitalWrite drives pin high or low. Set and clear registers only act on the bits written, so
// no lock is needed.
func (b *Backend) DigitalWrite(pin board.CanonicalPin, high bool) error {
	if err := b.ready(pin); err != nil {
		return err
	}
	kind := OutputClear
	if high {
		kind = OutputSet
	}
	addr, err := b.win.pinRegister(kind, pin)
	if err != nil {
		return err
	}
	b.win.store(addr, 1<<addr.shift)
	return nil
}

// ReadBank returns the whole level register of a bank.
func (b *Backend) ReadBank(bank int) (uint32, error) {
	if b.initErr != nil {
		return 0, b.initErr
	}
	if bank != 0 && bank != 1 {
		return 0, errors.Wrapf(board.ErrInvalidArgument, "bank must be 0 or 1, not %d", bank)
	}
	addr, err := b.win.wholeWord(GPIOBlock, gplev0+bank)
	if err != nil {
		return 0, err
	}
	return b.win.load(addr), nil
}

// AnalogRead fails: the SoC has no analog converter.
func (b *Backend) AnalogRead(pin board.CanonicalPin) (int, error) {
	if err := b.ready(pin); err != nil {
		return 0, err
	}
	return 0, board.NewUnsupportedError("analog input", pin)
}

// AnalogWrite fails: the SoC has no analog converter.
func (b *Backend) AnalogWrite(pin board.CanonicalPin, value int) error {
	if err := b.ready(pin); err != nil {
		return err
	}
	return board.NewUnsupportedError("analog output", pin)
}

// SetPadDrive sets the drive strength of a pad group, keeping its other settings. Strength 0 is
// 2mA, each step adds 2mA.
func (b *Backend) SetPadDrive(group, strength int) error {
	if b.initErr != nil {
		return b.initErr
	}
	if group < 0 || group > 2 {
		return errors.Wrapf(board.ErrInvalidArgument, "pad group must be 0-2, not %d", group)
	}
	if strength < 0 || strength > padDriveMask {
		return errors.Wrapf(board.ErrInvalidArgument, "drive strength must be 0-7, not %d", strength)
	}
	addr, err := b.win.wholeWord(PadsBlock, padsGPIO0+group)
	if err != nil {
		return err
	}

	registerMu.Lock()
	defer registerMu.Unlock()
	current := b.win.load(addr)
	b.win.store(addr, padPassword|(current&padKeepMask)|padHysteresis|padSlewLimited|uint32(strength))
	return nil
}

// Close unmaps the registers.
func (b *Backend) Close() error {
	var errs []error
	for _, closer := range b.closers {
		errs = append(errs, closer())
	}
	b.closers = nil
	return multierr.Combine(errs...)
}
