//go:build linux

package bcm283x

import (
	"encoding/binary"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sys/unix"

	picommon "go.viam.com/gpio/components/board/pi/common"
	"go.viam.com/gpio/logging"
)

const blockBytes = 4096

// Offsets of each block from the peripheral base.
var blockOffsets = map[Block]int64{
	GPIOBlock:  0x200000,
	PWMBlock:   0x20c000,
	ClockBlock: 0x101000,
	PadsBlock:  0x100000,
}

// Peripheral bases used when the device tree does not say.
var defaultPeripheralBase = map[picommon.Processor]int64{
	picommon.BCM2835: 0x20000000,
	picommon.BCM2836: 0x3f000000,
	picommon.BCM2837: 0x3f000000,
	picommon.BCM2711: 0xfe000000,
}

// mapBlocks maps every block through /dev/mem when running as root, and only the GPIO block
// through /dev/gpiomem otherwise or if /dev/mem is refused.
func mapBlocks(
	desc *picommon.Descriptor,
	conf MapConfig,
	logger logging.Logger,
) (map[Block]Words, func() error, error) {
	if unix.Geteuid() == 0 {
		blocks, closer, err := mapMem(desc, conf)
		if err == nil {
			return blocks, closer, nil
		}
		logger.Debugw("falling back to gpiomem", "error", err)
	}

	f, err := os.OpenFile(conf.GPIOMemPath, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", conf.GPIOMemPath)
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	mem, err := unix.Mmap(int(f.Fd()), 0, blockBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mmap %s", conf.GPIOMemPath)
	}
	return map[Block]Words{GPIOBlock: wordsOf(mem)}, func() error { return unix.Munmap(mem) }, nil
}

func mapMem(desc *picommon.Descriptor, conf MapConfig) (map[Block]Words, func() error, error) {
	base := peripheralBase(conf.RangesPath, desc.Processor)

	// The mappings stay valid once the file is closed.
	f, err := os.OpenFile(conf.MemPath, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", conf.MemPath)
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	var mapped [][]byte
	unmapAll := func() error {
		var errs []error
		for _, mem := range mapped {
			errs = append(errs, unix.Munmap(mem))
		}
		mapped = nil
		return multierr.Combine(errs...)
	}

	blocks := map[Block]Words{}
	for block, offset := range blockOffsets {
		mem, err := unix.Mmap(int(f.Fd()), base+offset, blockBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return nil, nil, multierr.Combine(
				errors.Wrapf(err, "mmap %s block at 0x%x", block, base+offset), unmapAll())
		}
		mapped = append(mapped, mem)
		blocks[block] = wordsOf(mem)
	}
	return blocks, unmapAll, nil
}

// peripheralBase reads the SoC's peripheral address from the device tree ranges property: the
// parent address is the second cell, or the third when the first two are 64-bit.
func peripheralBase(rangesPath string, processor picommon.Processor) int64 {
	//nolint:gosec
	ranges, err := os.ReadFile(rangesPath)
	if err == nil && len(ranges) >= 12 {
		if base := binary.BigEndian.Uint32(ranges[4:8]); base != 0 {
			return int64(base)
		}
		if base := binary.BigEndian.Uint32(ranges[8:12]); base != 0 {
			return int64(base)
		}
	}
	return defaultPeripheralBase[processor]
}

func wordsOf(mem []byte) MemoryBlock {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4)
}
