package picommon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/gpio/components/board"
)

// Processor is the SoC family of a board.
type Processor int

// The processor families with a BCM283x compatible register map.
const (
	BCM2835 Processor = iota
	BCM2836
	BCM2837
	BCM2711
)

func (p Processor) String() string {
	switch p {
	case BCM2835:
		return "BCM2835"
	case BCM2836:
		return "BCM2836"
	case BCM2837:
		return "BCM2837"
	case BCM2711:
		return "BCM2711"
	}
	return fmt.Sprintf("Processor(%d)", int(p))
}

const (
	newStyleFlag    = 1 << 23
	warrantyBitNew  = 1 << 25
	warrantyBitOld  = 1 << 24
	oldStyleCodeMax = 0xffff
)

// Board types of new-style revision codes. Pi 5 class boards (BCM2712, RP1 GPIO) are absent on
// purpose; their registers do not follow the BCM283x layout.
var newStyleModels = map[uint32]string{
	0x00: "Model A",
	0x01: "Model B",
	0x02: "Model A+",
	0x03: "Model B+",
	0x04: "Pi 2 Model B",
	0x05: "Alpha",
	0x06: "Compute Module",
	0x08: "Pi 3 Model B",
	0x09: "Pi Zero",
	0x0a: "Compute Module 3",
	0x0c: "Pi Zero W",
	0x0d: "Pi 3 Model B+",
	0x0e: "Pi 3 Model A+",
	0x10: "Compute Module 3+",
	0x11: "Pi 4 Model B",
	0x12: "Pi Zero 2 W",
	0x13: "Pi 400",
	0x14: "Compute Module 4",
	0x15: "Compute Module 4S",
}

var makers = map[uint32]string{
	0: "Sony UK",
	1: "Egoman",
	2: "Embest",
	3: "Sony Japan",
	4: "Embest",
	5: "Stadium",
}

type oldStyleBoard struct {
	model    string
	revision string
	memoryMB int
	maker    string
	layout   LayoutVersion
}

// Old-style revision codes, before the bit-packed scheme.
var oldStyleBoards = map[uint32]oldStyleBoard{
	0x0002: {"Model B", "1.0", 256, "Egoman", LayoutRev1},
	0x0003: {"Model B", "1.1", 256, "Egoman", LayoutRev1},
	0x0004: {"Model B", "2.0", 256, "Sony UK", LayoutRev2},
	0x0005: {"Model B", "2.0", 256, "Qisda", LayoutRev2},
	0x0006: {"Model B", "2.0", 256, "Egoman", LayoutRev2},
	0x0007: {"Model A", "2.0", 256, "Egoman", LayoutRev2},
	0x0008: {"Model A", "2.0", 256, "Sony UK", LayoutRev2},
	0x0009: {"Model A", "2.0", 256, "Qisda", LayoutRev2},
	0x000d: {"Model B", "2.0", 512, "Egoman", LayoutRev2},
	0x000e: {"Model B", "2.0", 512, "Sony UK", LayoutRev2},
	0x000f: {"Model B", "2.0", 512, "Egoman", LayoutRev2},
	0x0010: {"Model B+", "1.2", 512, "Sony UK", LayoutRev2},
	0x0011: {"Compute Module", "1.0", 512, "Sony UK", LayoutRev2},
	0x0012: {"Model A+", "1.1", 256, "Sony UK", LayoutRev2},
	0x0013: {"Model B+", "1.2", 512, "Embest", LayoutRev2},
	0x0014: {"Compute Module", "1.0", 512, "Embest", LayoutRev2},
	0x0015: {"Model A+", "1.1", 256, "Embest", LayoutRev2},
}

// ParseRevision decodes the hexadecimal Revision field of /proc/cpuinfo.
func ParseRevision(revision string) (*Descriptor, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(revision)), "0x")
	code, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil || trimmed == "" {
		return nil, errors.Wrapf(board.ErrPlatformUnsupported, "unparseable board revision %q", revision)
	}
	return DecodeRevision(uint32(code))
}

// DecodeRevision turns a board revision code into a descriptor. Codes that match no known board
// fail; there is no default layout.
func DecodeRevision(code uint32) (*Descriptor, error) {
	if code&newStyleFlag != 0 {
		return decodeNewStyle(code)
	}
	old, ok := oldStyleBoards[code&oldStyleCodeMax]
	if !ok || code&^(oldStyleCodeMax|warrantyBitOld) != 0 {
		return nil, errors.Wrapf(board.ErrPlatformUnsupported, "unknown board revision %04x", code)
	}
	return &Descriptor{
		RevisionCode: code,
		Model:        old.model,
		Processor:    BCM2835,
		Revision:     old.revision,
		MemoryMB:     old.memoryMB,
		Maker:        old.maker,
		WarrantyVoid: code&warrantyBitOld != 0,
		Layout:       old.layout,
	}, nil
}

func decodeNewStyle(code uint32) (*Descriptor, error) {
	revision := code & 0x0f
	boardType := (code >> 4) & 0xff
	processor := (code >> 12) & 0x0f
	maker := (code >> 16) & 0x0f
	memory := (code >> 20) & 0x07

	model, ok := newStyleModels[boardType]
	if !ok {
		return nil, errors.Wrapf(board.ErrPlatformUnsupported,
			"unknown board type 0x%02x in revision %06x", boardType, code)
	}
	if processor > uint32(BCM2711) {
		return nil, errors.Wrapf(board.ErrPlatformUnsupported,
			"processor %d in revision %06x has no supported register map", processor, code)
	}
	makerName, ok := makers[maker]
	if !ok {
		makerName = fmt.Sprintf("unknown (%d)", maker)
	}

	return &Descriptor{
		RevisionCode: code,
		Model:        model,
		Processor:    Processor(processor),
		Revision:     fmt.Sprintf("1.%d", revision),
		MemoryMB:     256 << memory,
		Maker:        makerName,
		WarrantyVoid: code&warrantyBitNew != 0,
		NewStyle:     true,
		Layout:       LayoutRev2,
	}, nil
}
