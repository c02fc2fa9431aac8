package bcm283x

import (
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"periph.io/x/conn/v3/physic"

	"go.viam.com/gpio/components/board"
	picommon "go.viam.com/gpio/components/board/pi/common"
	"go.viam.com/gpio/logging"
)

const testBlockWords = 1024

type storeRecord struct {
	word  int
	value uint32
}

// recordingBlock remembers every store made to it.
type recordingBlock struct {
	MemoryBlock
	mu     sync.Mutex
	stores []storeRecord
}

func newRecordingBlock() *recordingBlock {
	return &recordingBlock{MemoryBlock: NewMemoryBlock(testBlockWords)}
}

func (r *recordingBlock) Store(word int, value uint32) {
	r.mu.Lock()
	r.stores = append(r.stores, storeRecord{word, value})
	r.mu.Unlock()
	r.MemoryBlock.Store(word, value)
}

func (r *recordingBlock) recorded() []storeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storeRecord(nil), r.stores...)
}

type testBlocks struct {
	gpio  *recordingBlock
	pwm   MemoryBlock
	clock MemoryBlock
	pads  MemoryBlock
}

func newTestBackend(t *testing.T, revision string) (*Backend, testBlocks) {
	t.Helper()
	desc, err := picommon.ParseRevision(revision)
	test.That(t, err, test.ShouldBeNil)
	blocks := testBlocks{
		gpio:  newRecordingBlock(),
		pwm:   NewMemoryBlock(testBlockWords),
		clock: NewMemoryBlock(testBlockWords),
		pads:  NewMemoryBlock(testBlockWords),
	}
	backend := NewBackend(desc, map[Block]Words{
		GPIOBlock:  blocks.gpio,
		PWMBlock:   blocks.pwm,
		ClockBlock: blocks.clock,
		PadsBlock:  blocks.pads,
	}, clock.New(), logging.NewTestLogger(t))
	return backend, blocks
}

func TestFunctionSelect(t *testing.T) {
	backend, blocks := newTestBackend(t, "a02082")

	test.That(t, backend.SetMode(17, board.ModeOutput), test.ShouldBeNil)
	test.That(t, blocks.gpio.Load(1), test.ShouldEqual, uint32(0b001<<21))

	mode, err := backend.Mode(17)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, board.ModeOutput)

	test.That(t, backend.SetMode(17, board.ModeAlt3), test.ShouldBeNil)
	test.That(t, blocks.gpio.Load(1), test.ShouldEqual, uint32(0b111<<21))
	mode, err = backend.Mode(17)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, board.ModeAlt3)

	test.That(t, backend.SetMode(17, board.ModeInput), test.ShouldBeNil)
	test.That(t, blocks.gpio.Load(1), test.ShouldEqual, uint32(0))

	err = backend.SetMode(54, board.ModeOutput)
	test.That(t, errors.Is(err, board.ErrInvalidPin), test.ShouldBeTrue)
}

func TestConcurrentFunctionSelectKeepsNeighbours(t *testing.T) {
	backend, blocks := newTestBackend(t, "a02082")

	for range 50 {
		blocks.gpio.MemoryBlock.Store(0, 0)
		var wg sync.WaitGroup
		for pin := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				test.That(t, backend.SetMode(board.CanonicalPin(pin), board.ModeOutput), test.ShouldBeNil)
			}()
		}
		wg.Wait()
		test.That(t, blocks.gpio.Load(0), test.ShouldEqual, uint32(0x09249249))
	}
}

func TestConcurrentPadDrive(t *testing.T) {
	backend, blocks := newTestBackend(t, "a02082")
	const other = 0x00120020
	blocks.pads.Store(padsGPIO0, other|0x3)

	var wg sync.WaitGroup
	for strength := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			test.That(t, backend.SetPadDrive(0, strength), test.ShouldBeNil)
		}()
	}
	wg.Wait()

	final := blocks.pads.Load(padsGPIO0)
	test.That(t, final&0xff000000, test.ShouldEqual, uint32(padPassword))
	test.That(t, final&0x00ffffe0, test.ShouldEqual, uint32(other))
	test.That(t, final&(padHysteresis|padSlewLimited), test.ShouldEqual, uint32(padHysteresis|padSlewLimited))

	// other groups untouched
	test.That(t, blocks.pads.Load(padsGPIO0+1), test.ShouldEqual, uint32(0))

	test.That(t, errors.Is(backend.SetPadDrive(3, 1), board.ErrInvalidArgument), test.ShouldBeTrue)
	test.That(t, errors.Is(backend.SetPadDrive(0, 8), board.ErrInvalidArgument), test.ShouldBeTrue)
}

func TestLegacyPullSequence(t *testing.T) {
	backend, blocks := newTestBackend(t, "a02082")

	test.That(t, backend.SetPull(17, board.PullUp), test.ShouldBeNil)
	test.That(t, blocks.gpio.recorded(), test.ShouldResemble, []storeRecord{
		{gppud, 2},
		{gppudclk0, 1 << 17},
		{gppud, 0},
		{gppudclk0, 0},
	})

	test.That(t, backend.SetPull(40, board.PullDown), test.ShouldBeNil)
	test.That(t, blocks.gpio.recorded()[4:], test.ShouldResemble, []storeRecord{
		{gppud, 1},
		{gppudclk0 + 1, 1 << 8},
		{gppud, 0},
		{gppudclk0 + 1, 0},
	})
}

func TestPull2711(t *testing.T) {
	backend, blocks := newTestBackend(t, "c03111")
	blocks.gpio.MemoryBlock.Store(gpioPupPdnCtl+1, 0xffffffff)

	test.That(t, backend.SetPull(17, board.PullUp), test.ShouldBeNil)
	test.That(t, blocks.gpio.Load(gpioPupPdnCtl+1), test.ShouldEqual, uint32(0xfffffff7))

	test.That(t, backend.SetPull(17, board.PullOff), test.ShouldBeNil)
	test.That(t, blocks.gpio.Load(gpioPupPdnCtl+1), test.ShouldEqual, uint32(0xfffffff3))

	test.That(t, backend.SetPull(3, board.PullDown), test.ShouldBeNil)
	test.That(t, blocks.gpio.Load(gpioPupPdnCtl), test.ShouldEqual, uint32(2<<6))
}

func TestDigitalReadWrite(t *testing.T) {
	backend, blocks := newTestBackend(t, "a02082")

	test.That(t, backend.DigitalWrite(17, true), test.ShouldBeNil)
	test.That(t, backend.DigitalWrite(40, false), test.ShouldBeNil)
	test.That(t, blocks.gpio.recorded(), test.ShouldResemble, []storeRecord{
		{gpset0, 1 << 17},
		{gpclr0 + 1, 1 << 8},
	})

	blocks.gpio.MemoryBlock.Store(gplev0, 1<<4)
	high, err := backend.DigitalRead(4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)
	high, err = backend.DigitalRead(5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeFalse)

	blocks.gpio.MemoryBlock.Store(gplev0+1, 0x3fffff)
	bank, err := backend.ReadBank(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bank, test.ShouldEqual, uint32(0x3fffff))
	_, err = backend.ReadBank(2)
	test.That(t, errors.Is(err, board.ErrInvalidArgument), test.ShouldBeTrue)
}

func TestPWMMode(t *testing.T) {
	backend, blocks := newTestBackend(t, "a02082")

	test.That(t, backend.SetMode(18, board.ModePWMOutput), test.ShouldBeNil)
	test.That(t, blocks.gpio.Load(1), test.ShouldEqual, uint32(0b010<<24))
	test.That(t, blocks.pwm.Load(pwmControl), test.ShouldEqual, uint32(pwm0Enable|pwm1Enable))
	test.That(t, blocks.pwm.Load(pwmRange1), test.ShouldEqual, uint32(DefaultPWMRange))
	test.That(t, blocks.pwm.Load(pwmRange2), test.ShouldEqual, uint32(DefaultPWMRange))
	test.That(t, blocks.clock.Load(pwmClockDivisor), test.ShouldEqual, uint32(clockPassword|DefaultPWMDivisor<<12))
	test.That(t, blocks.clock.Load(pwmClockControl), test.ShouldEqual, uint32(0x5a000011))

	mode, err := backend.Mode(18)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, board.ModeAlt5)

	test.That(t, backend.PWMWrite(18, 512), test.ShouldBeNil)
	test.That(t, blocks.pwm.Load(pwmData1), test.ShouldEqual, uint32(512))
	test.That(t, backend.PWMWrite(13, 100), test.ShouldBeNil)
	test.That(t, blocks.pwm.Load(pwmData2), test.ShouldEqual, uint32(100))

	err = backend.SetMode(17, board.ModePWMOutput)
	test.That(t, errors.Is(err, board.ErrCapabilityUnsupported), test.ShouldBeTrue)
	test.That(t, blocks.gpio.Load(1), test.ShouldEqual, uint32(0b010<<24))

	test.That(t, errors.Is(backend.SetPWMRange(0), board.ErrInvalidArgument), test.ShouldBeTrue)
	test.That(t, errors.Is(backend.SetPWMClock(4096), board.ErrInvalidArgument), test.ShouldBeTrue)
}

func TestPWMTone(t *testing.T) {
	backend, blocks := newTestBackend(t, "a02082")

	test.That(t, backend.SetMode(18, board.ModePWMTone), test.ShouldBeNil)
	test.That(t, blocks.pwm.Load(pwmControl), test.ShouldEqual,
		uint32(pwm0Enable|pwm1Enable|pwm0MarkSpace|pwm1MarkSpace))

	test.That(t, backend.PWMToneWrite(18, 440), test.ShouldBeNil)
	test.That(t, blocks.pwm.Load(pwmRange1), test.ShouldEqual, uint32(1363))
	test.That(t, blocks.pwm.Load(pwmData1), test.ShouldEqual, uint32(681))

	test.That(t, backend.PWMToneWrite(18, 0), test.ShouldBeNil)
	test.That(t, blocks.pwm.Load(pwmData1), test.ShouldEqual, uint32(0))

	test.That(t, errors.Is(backend.PWMToneWrite(18, -1), board.ErrInvalidArgument), test.ShouldBeTrue)
}

func TestPWMClock2711Scaling(t *testing.T) {
	backend, blocks := newTestBackend(t, "c03111")

	test.That(t, backend.SetPWMClock(32), test.ShouldBeNil)
	test.That(t, blocks.clock.Load(pwmClockDivisor), test.ShouldEqual, uint32(clockPassword|90<<12))

	test.That(t, backend.SetPWMClock(MaxDivisor), test.ShouldBeNil)
	test.That(t, blocks.clock.Load(pwmClockDivisor), test.ShouldEqual, uint32(clockPassword|MaxDivisor<<12))
}

func TestClockSet(t *testing.T) {
	for _, tc := range []struct {
		revision string
		divisor  uint32
	}{
		{"a02082", 192},
		{"c03111", 540},
	} {
		t.Run(tc.revision, func(t *testing.T) {
			backend, blocks := newTestBackend(t, tc.revision)

			actual, err := backend.ClockSet(4, 100*physic.KiloHertz)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, actual, test.ShouldEqual, 100*physic.KiloHertz)
			test.That(t, blocks.clock.Load(gp0Divisor), test.ShouldEqual, clockPassword|tc.divisor<<12)
			test.That(t, blocks.clock.Load(gp0Control), test.ShouldEqual, uint32(0x5a000011))

			_, err = backend.ClockSet(17, physic.KiloHertz)
			test.That(t, errors.Is(err, board.ErrCapabilityUnsupported), test.ShouldBeTrue)
			_, err = backend.ClockSet(4, 0)
			test.That(t, errors.Is(err, board.ErrInvalidArgument), test.ShouldBeTrue)
		})
	}
}

// busyClock reports its control words as permanently busy.
type busyClock struct {
	MemoryBlock
}

func (b busyClock) Load(word int) uint32 {
	return b.MemoryBlock.Load(word) | clockBusy
}

func TestClockSetWaitsForBusy(t *testing.T) {
	desc, err := picommon.ParseRevision("a02082")
	test.That(t, err, test.ShouldBeNil)
	backend := NewBackend(desc, map[Block]Words{
		GPIOBlock:  NewMemoryBlock(testBlockWords),
		ClockBlock: busyClock{NewMemoryBlock(testBlockWords)},
	}, clock.New(), logging.NewTestLogger(t))

	_, err = backend.ClockSet(5, physic.MegaHertz)
	test.That(t, errors.Is(err, board.ErrHardwareUnavailable), test.ShouldBeTrue)
}

func TestClockDivisorNeverOvershoots(t *testing.T) {
	for _, osc := range []physic.Frequency{19200 * physic.KiloHertz, 54 * physic.MegaHertz} {
		for freq := physic.KiloHertz; freq <= 20*physic.MegaHertz; freq += 7 * physic.KiloHertz {
			divisor := ClockDivisor(osc, freq)
			test.That(t, divisor, test.ShouldBeBetweenOrEqual, uint32(MinDivisor), uint32(MaxDivisor))
			if divisor > MinDivisor && divisor < MaxDivisor {
				test.That(t, osc/physic.Frequency(divisor), test.ShouldBeLessThanOrEqualTo, freq)
				test.That(t, osc/physic.Frequency(divisor-1), test.ShouldBeGreaterThan, freq)
			}
		}
	}
	test.That(t, ClockDivisor(19200*physic.KiloHertz, physic.Hertz), test.ShouldEqual, uint32(MaxDivisor))
	test.That(t, ClockDivisor(19200*physic.KiloHertz, 100*physic.MegaHertz), test.ShouldEqual, uint32(MinDivisor))
}

func TestUnavailableBackend(t *testing.T) {
	backend := Unavailable(errors.New("open /dev/gpiomem: permission denied"))
	test.That(t, errors.Is(backend.Err(), board.ErrHardwareUnavailable), test.ShouldBeTrue)

	checks := []error{
		backend.SetMode(17, board.ModeOutput),
		backend.SetPull(17, board.PullUp),
		backend.DigitalWrite(17, true),
		backend.PWMWrite(18, 1),
		backend.SetPWMMode(board.PWMBalanced),
		backend.SetPWMRange(100),
		backend.SetPWMClock(10),
		backend.SetPadDrive(0, 1),
	}
	_, err := backend.DigitalRead(17)
	checks = append(checks, err)
	_, err = backend.Mode(17)
	checks = append(checks, err)
	_, err = backend.ReadBank(0)
	checks = append(checks, err)
	_, err = backend.ClockSet(4, physic.KiloHertz)
	checks = append(checks, err)

	for _, err := range checks {
		test.That(t, errors.Is(err, board.ErrHardwareUnavailable), test.ShouldBeTrue)
	}
	test.That(t, backend.Close(), test.ShouldBeNil)
}

func TestGPIOMemOnly(t *testing.T) {
	desc, err := picommon.ParseRevision("a02082")
	test.That(t, err, test.ShouldBeNil)
	gpio := NewMemoryBlock(testBlockWords)
	backend := NewBackend(desc, map[Block]Words{GPIOBlock: gpio}, clock.New(), logging.NewTestLogger(t))

	test.That(t, backend.SetMode(17, board.ModeOutput), test.ShouldBeNil)

	err = backend.SetMode(18, board.ModePWMOutput)
	test.That(t, errors.Is(err, board.ErrHardwareUnavailable), test.ShouldBeTrue)
	test.That(t, gpio.Load(1), test.ShouldEqual, uint32(0b001<<21))

	err = backend.SetMode(4, board.ModeGPIOClock)
	test.That(t, errors.Is(err, board.ErrHardwareUnavailable), test.ShouldBeTrue)
	test.That(t, gpio.Load(0), test.ShouldEqual, uint32(0))

	test.That(t, errors.Is(backend.SetPadDrive(0, 3), board.ErrHardwareUnavailable), test.ShouldBeTrue)
}

func TestShortBlockIsOutOfBounds(t *testing.T) {
	desc, err := picommon.ParseRevision("a02082")
	test.That(t, err, test.ShouldBeNil)
	backend := NewBackend(desc, map[Block]Words{GPIOBlock: NewMemoryBlock(10)}, clock.New(), logging.NewTestLogger(t))

	test.That(t, backend.SetMode(17, board.ModeOutput), test.ShouldBeNil)
	_, err = backend.DigitalRead(17)
	test.That(t, errors.Is(err, board.ErrHardwareUnavailable), test.ShouldBeTrue)
}

func TestAnalogUnsupported(t *testing.T) {
	backend, _ := newTestBackend(t, "a02082")
	_, err := backend.AnalogRead(17)
	test.That(t, errors.Is(err, board.ErrCapabilityUnsupported), test.ShouldBeTrue)
	test.That(t, errors.Is(backend.AnalogWrite(17, 3), board.ErrCapabilityUnsupported), test.ShouldBeTrue)
}
