package board

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NumCanonicalPins is the number of GPIO lines on the BCM2835 family. Canonical pins are
// 0..NumCanonicalPins-1.
const NumCanonicalPins = 54

// CanonicalPin is a BCM GPIO line number, the identity every numbering scheme resolves to.
type CanonicalPin int

func (pin CanonicalPin) String() string {
	return fmt.Sprintf("GPIO%d", int(pin))
}

// Valid reports whether the pin exists on the SoC.
func (pin CanonicalPin) Valid() bool {
	return pin >= 0 && pin < NumCanonicalPins
}

// PinMode is the function a pin is configured for.
type PinMode int

// The pin modes a caller can request.
const (
	ModeInput PinMode = iota
	ModeOutput
	ModePWMOutput
	ModePWMTone
	ModeGPIOClock
	ModeAlt0
	ModeAlt1
	ModeAlt2
	ModeAlt3
	ModeAlt4
	ModeAlt5
)

// PinModes lists every supported mode, in declaration order.
var PinModes = []PinMode{
	ModeInput, ModeOutput, ModePWMOutput, ModePWMTone, ModeGPIOClock,
	ModeAlt0, ModeAlt1, ModeAlt2, ModeAlt3, ModeAlt4, ModeAlt5,
}

var pinModeNames = map[PinMode]string{
	ModeInput:     "in",
	ModeOutput:    "out",
	ModePWMOutput: "pwm",
	ModePWMTone:   "pwmTone",
	ModeGPIOClock: "clock",
	ModeAlt0:      "alt0",
	ModeAlt1:      "alt1",
	ModeAlt2:      "alt2",
	ModeAlt3:      "alt3",
	ModeAlt4:      "alt4",
	ModeAlt5:      "alt5",
}

func (mode PinMode) String() string {
	if name, ok := pinModeNames[mode]; ok {
		return name
	}
	return fmt.Sprintf("PinMode(%d)", int(mode))
}

// AltFunction returns n for the alt0..alt5 modes.
func (mode PinMode) AltFunction() (int, bool) {
	if mode >= ModeAlt0 && mode <= ModeAlt5 {
		return int(mode - ModeAlt0), true
	}
	return 0, false
}

// IsPWM reports whether the mode drives the PWM peripheral.
func (mode PinMode) IsPWM() bool {
	return mode == ModePWMOutput || mode == ModePWMTone
}

// PullMode is the pull resistor configuration of an input.
type PullMode int

// The pull configurations.
const (
	PullOff PullMode = iota
	PullDown
	PullUp
)

func (pull PullMode) String() string {
	switch pull {
	case PullOff:
		return "off"
	case PullDown:
		return "down"
	case PullUp:
		return "up"
	}
	return fmt.Sprintf("PullMode(%d)", int(pull))
}

// PWMMode selects how the PWM peripheral spreads the duty cycle over the range.
type PWMMode int

const (
	// PWMBalanced spreads pulses evenly over the range.
	PWMBalanced PWMMode = iota
	// PWMMarkSpace emits one high period followed by one low period.
	PWMMarkSpace
)

func (mode PWMMode) String() string {
	if mode == PWMMarkSpace {
		return "mark:space"
	}
	return "balanced"
}

// ModeRequest is what a mode keyword asks for: a pin function, or a pull setting.
type ModeRequest struct {
	Mode   PinMode
	Pull   PullMode
	IsPull bool
}

// ParseModeKeyword parses the keywords accepted by `gpio mode`. Matching is case-insensitive.
func ParseModeKeyword(keyword string) (ModeRequest, error) {
	switch strings.ToLower(keyword) {
	case "in", "input":
		return ModeRequest{Mode: ModeInput}, nil
	case "out", "output":
		return ModeRequest{Mode: ModeOutput}, nil
	case "pwm":
		return ModeRequest{Mode: ModePWMOutput}, nil
	case "pwmtone":
		return ModeRequest{Mode: ModePWMTone}, nil
	case "clock":
		return ModeRequest{Mode: ModeGPIOClock}, nil
	case "up":
		return ModeRequest{Pull: PullUp, IsPull: true}, nil
	case "down":
		return ModeRequest{Pull: PullDown, IsPull: true}, nil
	case "tri", "off":
		return ModeRequest{Pull: PullOff, IsPull: true}, nil
	case "alt0":
		return ModeRequest{Mode: ModeAlt0}, nil
	case "alt1":
		return ModeRequest{Mode: ModeAlt1}, nil
	case "alt2":
		return ModeRequest{Mode: ModeAlt2}, nil
	case "alt3":
		return ModeRequest{Mode: ModeAlt3}, nil
	case "alt4":
		return ModeRequest{Mode: ModeAlt4}, nil
	case "alt5":
		return ModeRequest{Mode: ModeAlt5}, nil
	}
	return ModeRequest{}, errors.Wrapf(ErrInvalidArgument,
		"unknown mode %q, want in/out/pwm/pwmTone/clock/up/down/tri/alt0..alt5", keyword)
}
