package picommon

import (
	"go.viam.com/gpio/components/board"
)

// Translate converts pin, numbered under scheme, to its canonical pin. It has no state: the
// scheme and layout are always passed in.
func Translate(pin int, scheme board.NumberingScheme, layout *Layout) (board.CanonicalPin, error) {
	switch scheme {
	case board.SchemeBCM:
		if canonical := board.CanonicalPin(pin); canonical.Valid() {
			return canonical, nil
		}
	case board.SchemePhysical:
		if canonical, ok := lookup(layout.physToCanonical, pin); ok {
			return canonical, nil
		}
	case board.SchemeWiringPi:
		if canonical, ok := lookup(layout.wpiToCanonical, pin); ok {
			return canonical, nil
		}
	case board.SchemeUninitialized:
	}
	return 0, board.NewInvalidPinError(pin, scheme)
}

// Reverse converts a canonical pin back to its number under scheme. Pins that do not appear in
// the scheme fail with ErrInvalidPin.
func Reverse(pin board.CanonicalPin, scheme board.NumberingScheme, layout *Layout) (int, error) {
	if pin.Valid() {
		switch scheme {
		case board.SchemeBCM:
			return int(pin), nil
		case board.SchemePhysical:
			if num, ok := layout.canonicalToPhys[pin]; ok {
				return num, nil
			}
		case board.SchemeWiringPi:
			if num, ok := layout.canonicalToWPi[pin]; ok {
				return num, nil
			}
		case board.SchemeUninitialized:
		}
	}
	return 0, board.NewInvalidPinError(int(pin), scheme)
}

func lookup(table []int, num int) (board.CanonicalPin, bool) {
	if num < 0 || num >= len(table) || table[num] == noPin {
		return 0, false
	}
	return board.CanonicalPin(table[num]), true
}
