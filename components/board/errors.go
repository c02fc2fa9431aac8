package board

import (
	"github.com/pkg/errors"
)

// The failure classes of the pin layer. Every error returned by this module wraps exactly one of
// these, so callers classify with errors.Is.
var (
	// ErrPlatformUnsupported is returned when the board revision is not one we have a layout for.
	ErrPlatformUnsupported = errors.New("platform unsupported")
	// ErrInvalidPin is returned for out-of-range or non-electrical pins under the active scheme.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrInvalidArgument is returned for malformed numbers and unknown keywords.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCapabilityUnsupported is returned when the board or pin cannot do what was asked.
	ErrCapabilityUnsupported = errors.New("capability unsupported")
	// ErrHardwareUnavailable is returned by every register operation once mapping has failed.
	ErrHardwareUnavailable = errors.New("hardware unavailable")
	// ErrSetupFailed is returned when edge detection could not be configured.
	ErrSetupFailed = errors.New("setup failed")
	// ErrIOFailure is returned when a sysfs file could not be opened, read or written.
	ErrIOFailure = errors.New("i/o failure")
)

// NewInvalidPinError reports a pin that does not exist under the given numbering scheme.
func NewInvalidPinError(pin int, scheme NumberingScheme) error {
	return errors.Wrapf(ErrInvalidPin, "pin %d is not valid in %s numbering", pin, scheme)
}

// NewUnsupportedError reports an operation that pin cannot perform.
func NewUnsupportedError(op string, pin CanonicalPin) error {
	return errors.Wrapf(ErrCapabilityUnsupported, "%s is not available on %s", op, pin)
}

// IOError is a failed sysfs step. It matches ErrIOFailure and unwraps to the underlying OS error.
type IOError struct {
	Step string
	Err  error
}

func (err *IOError) Error() string {
	return err.Step + ": " + err.Err.Error()
}

// Is reports whether target is ErrIOFailure.
func (err *IOError) Is(target error) bool {
	return target == ErrIOFailure
}

func (err *IOError) Unwrap() error {
	return err.Err
}

// NewIOError wraps a failed sysfs step, naming the step so a partially applied export can be
// diagnosed.
func NewIOError(err error, step string) error {
	return &IOError{Step: step, Err: err}
}
