package inject

import (
	"periph.io/x/conn/v3/physic"

	"go.viam.com/gpio/components/board"
)

// Registers is an injected register backend.
type Registers struct {
	board.Registers
	SetModeFunc      func(pin board.CanonicalPin, mode board.PinMode) error
	ModeFunc         func(pin board.CanonicalPin) (board.PinMode, error)
	SetPullFunc      func(pin board.CanonicalPin, pull board.PullMode) error
	DigitalReadFunc  func(pin board.CanonicalPin) (bool, error)
	DigitalWriteFunc func(pin board.CanonicalPin, high bool) error
	ReadBankFunc     func(bank int) (uint32, error)
	AnalogReadFunc   func(pin board.CanonicalPin) (int, error)
	AnalogWriteFunc  func(pin board.CanonicalPin, value int) error
	PWMWriteFunc     func(pin board.CanonicalPin, value uint32) error
	PWMToneWriteFunc func(pin board.CanonicalPin, freqHz int) error
	SetPWMModeFunc   func(mode board.PWMMode) error
	SetPWMRangeFunc  func(rng uint32) error
	SetPWMClockFunc  func(divisor uint32) error
	ClockSetFunc     func(pin board.CanonicalPin, freq physic.Frequency) (physic.Frequency, error)
	SetPadDriveFunc  func(group, strength int) error
	CloseFunc        func() error
}

// SetMode calls the injected SetMode or the real version.
func (r *Registers) SetMode(pin board.CanonicalPin, mode board.PinMode) error {
	if r.SetModeFunc == nil {
		return r.Registers.SetMode(pin, mode)
	}
	return r.SetModeFunc(pin, mode)
}

// Mode calls the injected Mode or the real version.
func (r *Registers) Mode(pin board.CanonicalPin) (board.PinMode, error) {
	if r.ModeFunc == nil {
		return r.Registers.Mode(pin)
	}
	return r.ModeFunc(pin)
}

// SetPull calls the injected SetPull or the real version.
func (r *Registers) SetPull(pin board.CanonicalPin, pull board.PullMode) error {
	if r.SetPullFunc == nil {
		return r.Registers.SetPull(pin, pull)
	}
	return r.SetPullFunc(pin, pull)
}

// DigitalRead calls the injected DigitalRead or the real version.
func (r *Registers) DigitalRead(pin board.CanonicalPin) (bool, error) {
	if r.DigitalReadFunc == nil {
		return r.Registers.DigitalRead(pin)
	}
	return r.DigitalReadFunc(pin)
}

// DigitalWrite calls the injected DigitalWrite or the real version.
func (r *Registers) DigitalWrite(pin board.CanonicalPin, high bool) error {
	if r.DigitalWriteFunc == nil {
		return r.Registers.DigitalWrite(pin, high)
	}
	return r.DigitalWriteFunc(pin, high)
}

// ReadBank calls the injected ReadBank or the real version.
func (r *Registers) ReadBank(bank int) (uint32, error) {
	if r.ReadBankFunc == nil {
		return r.Registers.ReadBank(bank)
	}
	return r.ReadBankFunc(bank)
}

// AnalogRead calls the injected AnalogRead or the real version.
func (r *Registers) AnalogRead(pin board.CanonicalPin) (int, error) {
	if r.AnalogReadFunc == nil {
		return r.Registers.AnalogRead(pin)
	}
	return r.AnalogReadFunc(pin)
}

// AnalogWrite calls the injected AnalogWrite or the real version.
func (r *Registers) AnalogWrite(pin board.CanonicalPin, value int) error {
	if r.AnalogWriteFunc == nil {
		return r.Registers.AnalogWrite(pin, value)
	}
	return r.AnalogWriteFunc(pin, value)
}

// PWMWrite calls the injected PWMWrite or the real version.
func (r *Registers) PWMWrite(pin board.CanonicalPin, value uint32) error {
	if r.PWMWriteFunc == nil {
		return r.Registers.PWMWrite(pin, value)
	}
	return r.PWMWriteFunc(pin, value)
}

// PWMToneWrite calls the injected PWMToneWrite or the real version.
func (r *Registers) PWMToneWrite(pin board.CanonicalPin, freqHz int) error {
	if r.PWMToneWriteFunc == nil {
		return r.Registers.PWMToneWrite(pin, freqHz)
	}
	return r.PWMToneWriteFunc(pin, freqHz)
}

// SetPWMMode calls the injected SetPWMMode or the real version.
func (r *Registers) SetPWMMode(mode board.PWMMode) error {
	if r.SetPWMModeFunc == nil {
		return r.Registers.SetPWMMode(mode)
	}
	return r.SetPWMModeFunc(mode)
}

// SetPWMRange calls the injected SetPWMRange or the real version.
func (r *Registers) SetPWMRange(rng uint32) error {
	if r.SetPWMRangeFunc == nil {
		return r.Registers.SetPWMRange(rng)
	}
	return r.SetPWMRangeFunc(rng)
}

// SetPWMClock calls the injected SetPWMClock or the real version.
func (r *Registers) SetPWMClock(divisor uint32) error {
	if r.SetPWMClockFunc == nil {
		return r.Registers.SetPWMClock(divisor)
	}
	return r.SetPWMClockFunc(divisor)
}

// ClockSet calls the injected ClockSet or the real version.
func (r *Registers) ClockSet(pin board.CanonicalPin, freq physic.Frequency) (physic.Frequency, error) {
	if r.ClockSetFunc == nil {
		return r.Registers.ClockSet(pin, freq)
	}
	return r.ClockSetFunc(pin, freq)
}

// SetPadDrive calls the injected SetPadDrive or the real version.
func (r *Registers) SetPadDrive(group, strength int) error {
	if r.SetPadDriveFunc == nil {
		return r.Registers.SetPadDrive(group, strength)
	}
	return r.SetPadDriveFunc(group, strength)
}

// Close calls the injected Close or the real version.
func (r *Registers) Close() error {
	if r.CloseFunc == nil {
		if r.Registers == nil {
			return nil
		}
		return r.Registers.Close()
	}
	return r.CloseFunc()
}
