package piimpl

import (
	"sync"

	"periph.io/x/conn/v3/physic"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/components/board/pi/bcm283x"
)

// PinState is what was last asked of a pin.
type PinState struct {
	Mode board.PinMode
	Pull board.PullMode

	// For pins in a PWM mode, the board-wide range and clock divisor they run with.
	PWMRange        uint32
	PWMClockDivisor uint32
	// For pins in clock mode, the frequency the clock achieved.
	ClockFrequency physic.Frequency
}

// modeWriter is the part of the register backend the registry fronts.
type modeWriter interface {
	SetMode(pin board.CanonicalPin, mode board.PinMode) error
	SetPull(pin board.CanonicalPin, pull board.PullMode) error
}

// PinStateRegistry remembers the mode and pull requested for each pin and forwards the request
// to the hardware. It records the request before the hardware write, so after a failed write it
// still reports what was asked for: it is the last requested state, not the last confirmed one.
// Use the backend's Mode for what the hardware actually has.
//
// Concurrent requests for the same pin are not ordered with respect to each other.
type PinStateRegistry struct {
	hw modeWriter

	mu              sync.Mutex
	pins            map[board.CanonicalPin]*PinState
	pwmRange        uint32
	pwmClockDivisor uint32
}

// NewPinStateRegistry returns an empty registry in front of hw.
func NewPinStateRegistry(hw modeWriter) *PinStateRegistry {
	return &PinStateRegistry{
		hw:              hw,
		pins:            map[board.CanonicalPin]*PinState{},
		pwmRange:        bcm283x.DefaultPWMRange,
		pwmClockDivisor: bcm283x.DefaultPWMDivisor,
	}
}

// Caller holds mu.
func (r *PinStateRegistry) stateLocked(pin board.CanonicalPin) *PinState {
	state, ok := r.pins[pin]
	if !ok {
		state = &PinState{Mode: board.ModeInput, Pull: board.PullOff}
		r.pins[pin] = state
	}
	return state
}

// SetMode records mode for pin and then applies it.
func (r *PinStateRegistry) SetMode(pin board.CanonicalPin, mode board.PinMode) error {
	if !pin.Valid() {
		return board.NewInvalidPinError(int(pin), board.SchemeBCM)
	}
	r.mu.Lock()
	state := r.stateLocked(pin)
	state.Mode = mode
	state.ClockFrequency = 0
	if mode.IsPWM() {
		// Entering PWM mode restarts the peripheral with its defaults, for every PWM pin.
		r.pwmRange = bcm283x.DefaultPWMRange
		r.pwmClockDivisor = bcm283x.DefaultPWMDivisor
		r.syncPWMLocked()
	} else {
		state.PWMRange, state.PWMClockDivisor = 0, 0
	}
	if mode == board.ModeGPIOClock {
		state.ClockFrequency = bcm283x.DefaultClockFrequency
	}
	r.mu.Unlock()
	return r.hw.SetMode(pin, mode)
}

// Mode returns the last requested mode of pin. Pins never set report ModeInput.
func (r *PinStateRegistry) Mode(pin board.CanonicalPin) board.PinMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.pins[pin]; ok {
		return state.Mode
	}
	return board.ModeInput
}

// SetPull records pull for pin and then applies it.
func (r *PinStateRegistry) SetPull(pin board.CanonicalPin, pull board.PullMode) error {
	if !pin.Valid() {
		return board.NewInvalidPinError(int(pin), board.SchemeBCM)
	}
	r.mu.Lock()
	r.stateLocked(pin).Pull = pull
	r.mu.Unlock()
	return r.hw.SetPull(pin, pull)
}

// Pull returns the last requested pull of pin.
func (r *PinStateRegistry) Pull(pin board.CanonicalPin) board.PullMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.pins[pin]; ok {
		return state.Pull
	}
	return board.PullOff
}

// State returns a copy of everything recorded for pin, and whether anything was.
func (r *PinStateRegistry) State(pin board.CanonicalPin) (PinState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.pins[pin]
	if !ok {
		return PinState{Mode: board.ModeInput, Pull: board.PullOff}, false
	}
	return *state, true
}

// RecordPWMRange notes a new board-wide PWM range.
func (r *PinStateRegistry) RecordPWMRange(rng uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pwmRange = rng
	r.syncPWMLocked()
}

// RecordPWMClock notes a new board-wide PWM clock divisor.
func (r *PinStateRegistry) RecordPWMClock(divisor uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pwmClockDivisor = divisor
	r.syncPWMLocked()
}

// RecordClockFrequency notes the frequency a clock pin achieved.
func (r *PinStateRegistry) RecordClockFrequency(pin board.CanonicalPin, freq physic.Frequency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateLocked(pin).ClockFrequency = freq
}

func (r *PinStateRegistry) syncPWMLocked() {
	for _, state := range r.pins {
		if state.Mode.IsPWM() {
			state.PWMRange = r.pwmRange
			state.PWMClockDivisor = r.pwmClockDivisor
		}
	}
}
