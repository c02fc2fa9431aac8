package picommon

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/gpio/components/board"
)

// LayoutVersion tags one of the known header layouts.
type LayoutVersion int

const (
	// LayoutRev1 is the 26-pin P1 header of the first Model B boards (revisions 0002 and 0003).
	LayoutRev1 LayoutVersion = iota + 1
	// LayoutRev2 covers every later board: the rev 2 26-pin header and the 40-pin header.
	LayoutRev2
)

func (v LayoutVersion) String() string {
	switch v {
	case LayoutRev1:
		return "rev1"
	case LayoutRev2:
		return "rev2"
	}
	return fmt.Sprintf("LayoutVersion(%d)", int(v))
}

const noPin = -1

// Layout maps header positions and wiringPi numbers to canonical pins, and back. Both mappings
// are bijections between the valid numbers and the canonical pins they reach.
type Layout struct {
	name string

	physToCanonical []int // index = header position, noPin for power, ground and no-connect
	wpiToCanonical  []int // index = wiringPi number

	canonicalToPhys map[board.CanonicalPin]int
	canonicalToWPi  map[board.CanonicalPin]int
}

// NewLayout builds a layout from a physical table (index 0 unused) and a wiringPi table. Tables
// that map two numbers to the same canonical pin are rejected.
func NewLayout(name string, phys, wpi []int) (*Layout, error) {
	layout := &Layout{
		name:            name,
		physToCanonical: phys,
		wpiToCanonical:  wpi,
		canonicalToPhys: map[board.CanonicalPin]int{},
		canonicalToWPi:  map[board.CanonicalPin]int{},
	}
	if len(phys) > 0 && phys[0] != noPin {
		return nil, errors.Errorf("layout %s: physical position 0 does not exist", name)
	}
	if err := invert(phys, layout.canonicalToPhys); err != nil {
		return nil, errors.Wrapf(err, "layout %s physical table", name)
	}
	if err := invert(wpi, layout.canonicalToWPi); err != nil {
		return nil, errors.Wrapf(err, "layout %s wiringPi table", name)
	}
	return layout, nil
}

func invert(table []int, reverse map[board.CanonicalPin]int) error {
	for num, canonical := range table {
		if canonical == noPin {
			continue
		}
		pin := board.CanonicalPin(canonical)
		if !pin.Valid() {
			return errors.Errorf("%d maps to nonexistent %s", num, pin)
		}
		if prev, ok := reverse[pin]; ok {
			return errors.Errorf("%d and %d both map to %s", prev, num, pin)
		}
		reverse[pin] = num
	}
	return nil
}

func mustLayout(name string, phys, wpi []int) *Layout {
	layout, err := NewLayout(name, phys, wpi)
	if err != nil {
		panic(err)
	}
	return layout
}

// Name is the layout's tag.
func (l *Layout) Name() string {
	return l.name
}

// PhysicalPins is the number of header positions.
func (l *Layout) PhysicalPins() int {
	return len(l.physToCanonical) - 1
}

// WiringPiPins is the number of wiringPi numbers.
func (l *Layout) WiringPiPins() int {
	return len(l.wpiToCanonical)
}

// Layouts are resolved once per process from the descriptor's tag.
var (
	layoutRev1 = mustLayout(LayoutRev1.String(), physRev1, wpiRev1)
	layoutRev2 = mustLayout(LayoutRev2.String(), physRev2, wpiRev2)
)

func layoutFor(v LayoutVersion) *Layout {
	switch v {
	case LayoutRev1:
		return layoutRev1
	case LayoutRev2:
		return layoutRev2
	}
	panic(fmt.Sprintf("unreachable: %s", v))
}

// Header positions of the rev 1 P1 connector.
var physRev1 = []int{
	noPin,
	noPin, noPin, // 3.3V, 5V
	0, noPin, // SDA0, 5V
	1, noPin, // SCL0, GND
	4, 14,
	noPin, 15, // GND
	17, 18,
	21, noPin, // GND
	22, 23,
	noPin, 24, // 3.3V
	10, noPin, // GND
	9, 25,
	11, 8,
	noPin, 7, // GND
}

// wiringPi numbers 0-16 of rev 1 boards.
var wpiRev1 = []int{
	17, 18, 21, 22, 23, 24, 25, 4, // 0-7
	0, 1, // I2C
	8, 7, // SPI CE0, CE1
	10, 9, 11, // SPI MOSI, MISO, SCLK
	14, 15, // UART
}

// Header positions of the 40-pin connector. The rev 2 26-pin header is its first 26 positions.
var physRev2 = []int{
	noPin,
	noPin, noPin, // 3.3V, 5V
	2, noPin, // SDA1, 5V
	3, noPin, // SCL1, GND
	4, 14,
	noPin, 15, // GND
	17, 18,
	27, noPin, // GND
	22, 23,
	noPin, 24, // 3.3V
	10, noPin, // GND
	9, 25,
	11, 8,
	noPin, 7, // GND
	0, 1, // ID_SD, ID_SC
	5, noPin, // GND
	6, 12,
	13, noPin, // GND
	19, 16,
	26, 20,
	noPin, 21, // GND
}

// wiringPi numbers 0-31 of rev 2 and later boards.
var wpiRev2 = []int{
	17, 18, 27, 22, 23, 24, 25, 4, // 0-7
	2, 3, // I2C
	8, 7, // SPI CE0, CE1
	10, 9, 11, // SPI MOSI, MISO, SCLK
	14, 15, // UART
	28, 29, 30, 31, // P5 header
	5, 6, 13, 19, 26, // 21-25
	12, 16, 20, 21, // 26-29
	0, 1, // ID EEPROM
}
