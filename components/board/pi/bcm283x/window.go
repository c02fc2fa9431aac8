package bcm283x

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"go.viam.com/gpio/components/board"
)

// Block is one of the peripheral register blocks.
type Block int

// The register blocks. /dev/gpiomem only exposes GPIOBlock.
const (
	GPIOBlock Block = iota
	PWMBlock
	ClockBlock
	PadsBlock
)

func (b Block) String() string {
	switch b {
	case GPIOBlock:
		return "gpio"
	case PWMBlock:
		return "pwm"
	case ClockBlock:
		return "clock"
	case PadsBlock:
		return "pads"
	}
	return "unknown"
}

// Words is a register block addressed by 32-bit word.
type Words interface {
	Len() int
	Load(word int) uint32
	Store(word int, value uint32)
}

// MemoryBlock is a register block over plain memory: either an mmap of the peripheral or, in
// tests, an ordinary slice. Accesses are atomic so the compiler neither caches nor reorders them.
type MemoryBlock []uint32

// NewMemoryBlock returns a zeroed block of words.
func NewMemoryBlock(words int) MemoryBlock {
	return make(MemoryBlock, words)
}

// Len returns the number of words in the block.
func (m MemoryBlock) Len() int {
	return len(m)
}

// Load reads one word.
func (m MemoryBlock) Load(word int) uint32 {
	return atomic.LoadUint32(&m[word])
}

// Store writes one word.
func (m MemoryBlock) Store(word int, value uint32) {
	atomic.StoreUint32(&m[word], value)
}

// RegisterKind names a per-pin register family of the GPIO block.
type RegisterKind int

// The per-pin registers.
const (
	FunctionSelect RegisterKind = iota
	OutputSet
	OutputClear
	Level
	PullClock
	PullControl2711
)

// Word offsets of the GPIO block.
const (
	gpfsel0       = 0
	gpset0        = 7
	gpclr0        = 10
	gplev0        = 13
	gppud         = 37
	gppudclk0     = 38
	gpioPupPdnCtl = 57
)

type registerLayout struct {
	base        int
	pinsPerWord int
	width       uint
}

var registerLayouts = map[RegisterKind]registerLayout{
	FunctionSelect:  {gpfsel0, 10, 3},
	OutputSet:       {gpset0, 32, 1},
	OutputClear:     {gpclr0, 32, 1},
	Level:           {gplev0, 32, 1},
	PullClock:       {gppudclk0, 32, 1},
	PullControl2711: {gpioPupPdnCtl, 16, 2},
}

// regAddr is a validated field: a word of a block and the bits of it that belong to one pin.
type regAddr struct {
	block Block
	word  int
	shift uint
	width uint
}

func (a regAddr) mask() uint32 {
	return ((1 << a.width) - 1) << a.shift
}

// All read-modify-write sequences on words shared by several pins or settings hold this lock.
// It is process-wide because the hardware is.
var registerMu sync.Mutex

// window is the only path from pins to register words. Every access is checked against the
// blocks that were actually mapped.
type window struct {
	blocks map[Block]Words
}

func newWindow(blocks map[Block]Words) *window {
	return &window{blocks: blocks}
}

// pinRegister finds the word and bits of kind that hold pin.
func (w *window) pinRegister(kind RegisterKind, pin board.CanonicalPin) (regAddr, error) {
	if !pin.Valid() {
		return regAddr{}, board.NewInvalidPinError(int(pin), board.SchemeBCM)
	}
	layout, ok := registerLayouts[kind]
	if !ok {
		return regAddr{}, errors.Errorf("unknown register kind %d", kind)
	}
	addr := regAddr{
		block: GPIOBlock,
		word:  layout.base + int(pin)/layout.pinsPerWord,
		shift: uint(int(pin)%layout.pinsPerWord) * layout.width,
		width: layout.width,
	}
	return addr, w.check(addr)
}

// wholeWord addresses a dedicated register.
func (w *window) wholeWord(block Block, word int) (regAddr, error) {
	addr := regAddr{block: block, word: word, width: 32}
	return addr, w.check(addr)
}

func (w *window) check(addr regAddr) error {
	words, ok := w.blocks[addr.block]
	if !ok || words == nil {
		return errors.Wrapf(board.ErrHardwareUnavailable, "%s registers are not mapped", addr.block)
	}
	if addr.word < 0 || addr.word >= words.Len() {
		return errors.Wrapf(board.ErrHardwareUnavailable,
			"word %d is outside the mapped %s block", addr.word, addr.block)
	}
	return nil
}

// require fails unless every block is mapped.
func (w *window) require(blocks ...Block) error {
	for _, block := range blocks {
		if err := w.check(regAddr{block: block}); err != nil {
			return err
		}
	}
	return nil
}

// The accessors below take addresses from pinRegister or wholeWord, which already checked them.

func (w *window) load(addr regAddr) uint32 {
	return w.blocks[addr.block].Load(addr.word)
}

func (w *window) store(addr regAddr, value uint32) {
	w.blocks[addr.block].Store(addr.word, value)
}

// field reads the pin's bits of addr.
func (w *window) field(addr regAddr) uint32 {
	return (w.load(addr) & addr.mask()) >> addr.shift
}

// modify replaces the pin's bits of addr with value, leaving the rest of the word alone.
func (w *window) modify(addr regAddr, value uint32) {
	registerMu.Lock()
	defer registerMu.Unlock()
	current := w.load(addr)
	w.store(addr, (current&^addr.mask())|((value<<addr.shift)&addr.mask()))
}
