// Package board defines the pin identities, modes and failure classes shared by the gpio
// backends, and the register access interface the Pi board dispatches to.
package board

import (
	"periph.io/x/conn/v3/physic"
)

// Registers is direct access to the SoC's GPIO, PWM, clock and pad control registers. All pins
// are canonical; translating from a numbering scheme happens before this layer.
type Registers interface {
	// SetMode selects the pin function. PWM and clock modes also initialise the peripheral.
	SetMode(pin CanonicalPin, mode PinMode) error
	// Mode reads the pin's function select back from hardware. PWM and clock pins report their
	// alternate function.
	Mode(pin CanonicalPin) (PinMode, error)
	SetPull(pin CanonicalPin, pull PullMode) error

	DigitalRead(pin CanonicalPin) (bool, error)
	DigitalWrite(pin CanonicalPin, high bool) error
	// ReadBank returns the level register of bank 0 (pins 0-31) or 1 (pins 32-53).
	ReadBank(bank int) (uint32, error)

	AnalogRead(pin CanonicalPin) (int, error)
	AnalogWrite(pin CanonicalPin, value int) error

	PWMWrite(pin CanonicalPin, value uint32) error
	PWMToneWrite(pin CanonicalPin, freqHz int) error
	SetPWMMode(mode PWMMode) error
	SetPWMRange(rng uint32) error
	SetPWMClock(divisor uint32) error

	// ClockSet starts the general purpose clock on pin and returns the frequency actually
	// achieved. Within the divisor's range that never exceeds freq.
	ClockSet(pin CanonicalPin, freq physic.Frequency) (physic.Frequency, error)
	SetPadDrive(group, strength int) error

	Close() error
}
