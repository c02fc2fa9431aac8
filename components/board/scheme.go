package board

import (
	"strings"

	"github.com/pkg/errors"
)

// NumberingScheme is the way a caller numbers pins. One scheme is chosen per process and carried
// explicitly by whoever translates pins.
type NumberingScheme int

const (
	// SchemeBCM numbers pins by their BCM GPIO line. It is the default.
	SchemeBCM NumberingScheme = iota
	// SchemePhysical numbers pins by header position.
	SchemePhysical
	// SchemeWiringPi is the historical wiringPi numbering.
	SchemeWiringPi
	// SchemeUninitialized performs no hardware setup; only sysfs operations work.
	SchemeUninitialized
)

func (scheme NumberingScheme) String() string {
	switch scheme {
	case SchemeBCM:
		return "bcm"
	case SchemePhysical:
		return "physical"
	case SchemeWiringPi:
		return "wiringpi"
	case SchemeUninitialized:
		return "uninitialized"
	}
	return "unknown"
}

// ParseNumberingScheme parses a scheme name as used in config files. An empty name is SchemeBCM.
func ParseNumberingScheme(name string) (NumberingScheme, error) {
	switch strings.ToLower(name) {
	case "", "bcm", "gpio":
		return SchemeBCM, nil
	case "physical", "phys":
		return SchemePhysical, nil
	case "wiringpi", "wpi":
		return SchemeWiringPi, nil
	case "none", "uninitialized":
		return SchemeUninitialized, nil
	}
	return SchemeBCM, errors.Wrapf(ErrInvalidArgument, "unknown numbering scheme %q", name)
}
