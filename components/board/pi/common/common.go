// Package picommon contains shared information for Raspberry Pi boards: revision decoding, the
// process-wide board descriptor, and the header layouts used to translate pin numbers.
package picommon

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/host/v3/distro"

	"go.viam.com/gpio/components/board"
)

// Descriptor identifies the board this process runs on. It is created once and never mutated.
type Descriptor struct {
	RevisionCode uint32
	Model        string
	Processor    Processor
	Revision     string
	MemoryMB     int
	Maker        string
	WarrantyVoid bool
	NewStyle     bool
	Layout       LayoutVersion
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("Raspberry Pi %s rev %s (%s, %dMB, %s)",
		d.Model, d.Revision, d.Processor, d.MemoryMB, d.Maker)
}

// LayoutTable returns the header layout for this board.
func (d *Descriptor) LayoutTable() *Layout {
	return layoutFor(d.Layout)
}

// RevisionSource returns the raw board revision string.
type RevisionSource func() (string, error)

// CPUInfoRevision reads the Revision field of /proc/cpuinfo.
func CPUInfoRevision() (string, error) {
	revision, ok := distro.CPUInfo()["Revision"]
	if !ok || strings.TrimSpace(revision) == "" {
		return "", errors.Wrap(board.ErrPlatformUnsupported, "no board revision in /proc/cpuinfo")
	}
	return revision, nil
}

// FixedRevision returns a source that always reports revision, for configured overrides.
func FixedRevision(revision string) RevisionSource {
	return func() (string, error) {
		return revision, nil
	}
}

var (
	resolveOnce  sync.Once
	resolvedDesc *Descriptor
	resolveErr   error
)

// ResolveBoard probes the board once per process and caches the result, failures included. Only
// the source passed to the first call is consulted.
func ResolveBoard(src RevisionSource) (*Descriptor, error) {
	resolveOnce.Do(func() {
		resolvedDesc, resolveErr = resolve(src)
	})
	return resolvedDesc, resolveErr
}

func resolve(src RevisionSource) (*Descriptor, error) {
	revision, err := src()
	if err != nil {
		return nil, err
	}
	return ParseRevision(revision)
}

// DeviceTreeModel returns the model string from the device tree, if the kernel has one.
func DeviceTreeModel() string {
	return distro.DTModel()
}
