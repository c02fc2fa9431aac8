package bcm283x

import (
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"

	"go.viam.com/gpio/components/board"
	picommon "go.viam.com/gpio/components/board/pi/common"
)

// Word offsets of the PWM block.
const (
	pwmControl = 0
	pwmRange1  = 4
	pwmData1   = 5
	pwmRange2  = 8
	pwmData2   = 9

	pwm0Enable    = 0x0001
	pwm0MarkSpace = 0x0080
	pwm1Enable    = 0x0100
	pwm1MarkSpace = 0x8000
)

// Word offsets and bits of the clock manager block.
const (
	gp0Control      = 28
	gp0Divisor      = 29
	gp1Control      = 30
	gp1Divisor      = 31
	gp2Control      = 32
	gp2Divisor      = 33
	pwmClockControl = 40
	pwmClockDivisor = 41

	clockPassword   = 0x5a000000
	clockBusy       = 0x80
	clockEnable     = 0x10
	clockOscillator = 0x01

	// MaxDivisor is the largest integer clock divisor.
	MaxDivisor = 4095
	// MinDivisor is the smallest integer clock divisor.
	MinDivisor = 1
)

// Defaults applied when a pin is switched to PWM.
const (
	DefaultPWMRange   = 1024
	DefaultPWMDivisor = 32
	// DefaultClockFrequency is started when a pin is switched to clock mode.
	DefaultClockFrequency = 100 * physic.KiloHertz

	// ToneBase divided by a tone frequency in Hz gives the PWM range of that tone.
	ToneBase = 600000

	rangeSettle    = 10 * time.Microsecond
	busyPollPeriod = time.Microsecond
	busyPollLimit  = 1000
)

type pwmPin struct {
	alt     board.PinMode
	channel int
}

// Pins that reach a PWM channel, and the alternate function that connects them.
var pwmPins = map[board.CanonicalPin]pwmPin{
	12: {board.ModeAlt0, 0},
	13: {board.ModeAlt0, 1},
	18: {board.ModeAlt5, 0},
	19: {board.ModeAlt5, 1},
	40: {board.ModeAlt0, 0},
	41: {board.ModeAlt0, 1},
	45: {board.ModeAlt0, 1},
	52: {board.ModeAlt1, 0},
	53: {board.ModeAlt1, 1},
}

type clockPin struct {
	alt     board.PinMode
	control int
	divisor int
}

// Pins that reach a general purpose clock.
var clockPins = map[board.CanonicalPin]clockPin{
	4:  {board.ModeAlt0, gp0Control, gp0Divisor},
	5:  {board.ModeAlt0, gp1Control, gp1Divisor},
	6:  {board.ModeAlt0, gp2Control, gp2Divisor},
	20: {board.ModeAlt5, gp0Control, gp0Divisor},
	21: {board.ModeAlt5, gp1Control, gp1Divisor},
	32: {board.ModeAlt0, gp0Control, gp0Divisor},
	34: {board.ModeAlt0, gp0Control, gp0Divisor},
	42: {board.ModeAlt0, gp1Control, gp1Divisor},
	43: {board.ModeAlt0, gp2Control, gp2Divisor},
	44: {board.ModeAlt0, gp1Control, gp1Divisor},
}

func (b *Backend) setPWMFunction(pin board.CanonicalPin, mode board.PinMode) error {
	p, ok := pwmPins[pin]
	if !ok {
		return board.NewUnsupportedError("pwm", pin)
	}
	if err := b.win.require(PWMBlock, ClockBlock); err != nil {
		return err
	}
	if err := b.setFunction(pin, fselCodes[p.alt]); err != nil {
		return err
	}
	b.clock.Sleep(functionDelay)

	pwmMode := board.PWMBalanced
	if mode == board.ModePWMTone {
		pwmMode = board.PWMMarkSpace
	}
	if err := b.SetPWMMode(pwmMode); err != nil {
		return err
	}
	if err := b.SetPWMRange(DefaultPWMRange); err != nil {
		return err
	}
	return b.SetPWMClock(DefaultPWMDivisor)
}

func (b *Backend) setClockFunction(pin board.CanonicalPin) error {
	c, ok := clockPins[pin]
	if !ok {
		return board.NewUnsupportedError("clock", pin)
	}
	if err := b.win.require(ClockBlock); err != nil {
		return err
	}
	if err := b.setFunction(pin, fselCodes[c.alt]); err != nil {
		return err
	}
	b.clock.Sleep(functionDelay)
	_, err := b.ClockSet(pin, DefaultClockFrequency)
	return err
}

// PWMWrite sets the duty value of the channel pin is connected to.
func (b *Backend) PWMWrite(pin board.CanonicalPin, value uint32) error {
	if err := b.ready(pin); err != nil {
		return err
	}
	p, ok := pwmPins[pin]
	if !ok {
		return board.NewUnsupportedError("pwm", pin)
	}
	data := pwmData1
	if p.channel == 1 {
		data = pwmData2
	}
	addr, err := b.win.wholeWord(PWMBlock, data)
	if err != nil {
		return err
	}
	b.win.store(addr, value)
	return nil
}

// PWMToneWrite emits a square wave of freqHz on pin, which must be in pwmTone mode. Zero stops
// the tone.
func (b *Backend) PWMToneWrite(pin board.CanonicalPin, freqHz int) error {
	if err := b.ready(pin); err != nil {
		return err
	}
	if freqHz < 0 || freqHz > ToneBase {
		return errors.Wrapf(board.ErrInvalidArgument, "tone frequency must be 0-%d Hz, not %d", ToneBase, freqHz)
	}
	if freqHz == 0 {
		return b.PWMWrite(pin, 0)
	}
	rng := ToneRange(freqHz)
	if err := b.SetPWMRange(rng); err != nil {
		return err
	}
	return b.PWMWrite(pin, rng/2)
}

// ToneRange returns the PWM range PWMToneWrite programs for a tone of freqHz.
func ToneRange(freqHz int) uint32 {
	return uint32(ToneBase / freqHz)
}

// SetPWMMode sets both channels to balanced or mark:space and enables them.
func (b *Backend) SetPWMMode(mode board.PWMMode) error {
	if b.initErr != nil {
		return b.initErr
	}
	addr, err := b.win.wholeWord(PWMBlock, pwmControl)
	if err != nil {
		return err
	}
	control := uint32(pwm0Enable | pwm1Enable)
	if mode == board.PWMMarkSpace {
		control |= pwm0MarkSpace | pwm1MarkSpace
	}
	b.win.store(addr, control)
	return nil
}

// SetPWMRange sets the range of both channels.
func (b *Backend) SetPWMRange(rng uint32) error {
	if b.initErr != nil {
		return b.initErr
	}
	if rng == 0 {
		return errors.Wrap(board.ErrInvalidArgument, "pwm range must be greater than 0")
	}
	range1, err := b.win.wholeWord(PWMBlock, pwmRange1)
	if err != nil {
		return err
	}
	range2, err := b.win.wholeWord(PWMBlock, pwmRange2)
	if err != nil {
		return err
	}
	b.win.store(range1, rng)
	b.clock.Sleep(rangeSettle)
	b.win.store(range2, rng)
	return nil
}

// SetPWMClock sets the PWM clock divisor. The PWM is stopped while the clock is changed and its
// control word restored afterwards.
func (b *Backend) SetPWMClock(divisor uint32) error {
	if b.initErr != nil {
		return b.initErr
	}
	if divisor < MinDivisor || divisor > MaxDivisor {
		return errors.Wrapf(board.ErrInvalidArgument,
			"pwm clock divisor must be %d-%d, not %d", MinDivisor, MaxDivisor, divisor)
	}
	// The BCM2711 PWM clock runs from a 54MHz oscillator instead of 19.2MHz.
	if b.desc.Processor == picommon.BCM2711 {
		divisor = min(540*divisor/192, MaxDivisor)
	}
	control, err := b.win.wholeWord(PWMBlock, pwmControl)
	if err != nil {
		return err
	}
	clockControl, err := b.win.wholeWord(ClockBlock, pwmClockControl)
	if err != nil {
		return err
	}
	clockDivisor, err := b.win.wholeWord(ClockBlock, pwmClockDivisor)
	if err != nil {
		return err
	}

	registerMu.Lock()
	defer registerMu.Unlock()
	saved := b.win.load(control)
	b.win.store(control, 0)
	b.win.store(clockControl, clockPassword|clockOscillator)
	b.clock.Sleep(functionDelay)
	if err := b.waitClockIdle(clockControl); err != nil {
		return err
	}
	b.win.store(clockDivisor, clockPassword|divisor<<12)
	b.win.store(clockControl, clockPassword|clockEnable|clockOscillator)
	b.win.store(control, saved)
	return nil
}

// ClockSet starts the general purpose clock of pin at the highest frequency not above freq.
func (b *Backend) ClockSet(pin board.CanonicalPin, freq physic.Frequency) (physic.Frequency, error) {
	if err := b.ready(pin); err != nil {
		return 0, err
	}
	c, ok := clockPins[pin]
	if !ok {
		return 0, board.NewUnsupportedError("clock", pin)
	}
	if freq <= 0 {
		return 0, errors.Wrapf(board.ErrInvalidArgument, "clock frequency must be positive, not %s", freq)
	}
	control, err := b.win.wholeWord(ClockBlock, c.control)
	if err != nil {
		return 0, err
	}
	divisorWord, err := b.win.wholeWord(ClockBlock, c.divisor)
	if err != nil {
		return 0, err
	}

	osc := b.oscillator()
	divisor := ClockDivisor(osc, freq)

	registerMu.Lock()
	defer registerMu.Unlock()
	b.win.store(control, clockPassword|clockOscillator)
	if err := b.waitClockIdle(control); err != nil {
		return 0, err
	}
	b.win.store(divisorWord, clockPassword|divisor<<12)
	b.win.store(control, clockPassword|clockEnable|clockOscillator)
	actual := osc / physic.Frequency(divisor)
	b.logger.Debugw("clock started", "pin", pin.String(), "requested", freq.String(), "actual", actual.String())
	return actual, nil
}

// ClockDivisor returns the integer divisor that gets as close to freq as possible without going
// over, clamped to what the clock manager accepts.
func ClockDivisor(osc, freq physic.Frequency) uint32 {
	if freq <= 0 {
		return MaxDivisor
	}
	divisor := int64(osc / freq)
	if osc%freq != 0 {
		divisor++
	}
	return uint32(max(MinDivisor, min(divisor, MaxDivisor)))
}

func (b *Backend) oscillator() physic.Frequency {
	if b.desc.Processor == picommon.BCM2711 {
		return 54 * physic.MegaHertz
	}
	return 19200 * physic.KiloHertz
}

// Caller holds registerMu.
func (b *Backend) waitClockIdle(control regAddr) error {
	for range busyPollLimit {
		if b.win.load(control)&clockBusy == 0 {
			return nil
		}
		b.clock.Sleep(busyPollPeriod)
	}
	return errors.Wrapf(board.ErrHardwareUnavailable, "clock at word %d did not stop", control.word)
}
