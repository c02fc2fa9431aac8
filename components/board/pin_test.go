package board

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestParseModeKeyword(t *testing.T) {
	for _, tc := range []struct {
		keyword  string
		expected ModeRequest
	}{
		{"in", ModeRequest{Mode: ModeInput}},
		{"INPUT", ModeRequest{Mode: ModeInput}},
		{"out", ModeRequest{Mode: ModeOutput}},
		{"output", ModeRequest{Mode: ModeOutput}},
		{"pwm", ModeRequest{Mode: ModePWMOutput}},
		{"pwmTone", ModeRequest{Mode: ModePWMTone}},
		{"clock", ModeRequest{Mode: ModeGPIOClock}},
		{"up", ModeRequest{Pull: PullUp, IsPull: true}},
		{"down", ModeRequest{Pull: PullDown, IsPull: true}},
		{"tri", ModeRequest{Pull: PullOff, IsPull: true}},
		{"off", ModeRequest{Pull: PullOff, IsPull: true}},
		{"alt0", ModeRequest{Mode: ModeAlt0}},
		{"alt5", ModeRequest{Mode: ModeAlt5}},
	} {
		t.Run(tc.keyword, func(t *testing.T) {
			req, err := ParseModeKeyword(tc.keyword)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, req, test.ShouldResemble, tc.expected)
		})
	}

	for _, bad := range []string{"alt6", "", "pwm0", "inn"} {
		_, err := ParseModeKeyword(bad)
		test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
	}
}

func TestPinModeNames(t *testing.T) {
	for _, mode := range PinModes {
		req, err := ParseModeKeyword(mode.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, req.Mode, test.ShouldEqual, mode)
	}

	alt, ok := ModeAlt3.AltFunction()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, alt, test.ShouldEqual, 3)
	_, ok = ModeOutput.AltFunction()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestParseEdgeAndDirection(t *testing.T) {
	edge, err := ParseEdge("Both")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, edge, test.ShouldEqual, EdgeBoth)
	test.That(t, edge.String(), test.ShouldEqual, "both")
	test.That(t, EdgeNone.Triggers(), test.ShouldBeFalse)
	test.That(t, EdgeFalling.Triggers(), test.ShouldBeTrue)

	_, err = ParseEdge("sideways")
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)

	for keyword, expected := range map[string]Direction{
		"in": DirectionIn, "input": DirectionIn,
		"out": DirectionOut, "output": DirectionOut,
		"high": DirectionHigh, "up": DirectionHigh,
		"low": DirectionLow, "down": DirectionLow,
	} {
		dir, err := ParseDirection(keyword)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, dir, test.ShouldEqual, expected)
	}
	_, err = ParseDirection("sideways")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseNumberingScheme(t *testing.T) {
	scheme, err := ParseNumberingScheme("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scheme, test.ShouldEqual, SchemeBCM)

	scheme, err = ParseNumberingScheme("WPI")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scheme, test.ShouldEqual, SchemeWiringPi)

	_, err = ParseNumberingScheme("piface")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestErrorClasses(t *testing.T) {
	err := NewInvalidPinError(1, SchemePhysical)
	test.That(t, errors.Is(err, ErrInvalidPin), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "physical")

	cause := errors.New("permission denied")
	err = NewIOError(cause, "write /sys/class/gpio/gpio4/direction")
	test.That(t, errors.Is(err, ErrIOFailure), test.ShouldBeTrue)
	test.That(t, errors.Is(err, cause), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "write /sys/class/gpio/gpio4/direction: permission denied")
}
