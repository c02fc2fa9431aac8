// Package genericlinux drives pins through the kernel rather than the SoC registers: the legacy
// sysfs GPIO class, edge-triggered interrupts on top of it or the gpiochip device, and the few
// system helpers the gpio tool needs (file ownership and kernel modules).
package genericlinux

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/logging"
)

const (
	// DefaultSysfsRoot is where the kernel exposes the GPIO class.
	DefaultSysfsRoot = "/sys/class/gpio"
	// MaxSysfsPin is the highest pin number the sysfs commands accept.
	MaxSysfsPin = 63
	// Unknown is reported for an attribute of an exported pin that could not be read.
	Unknown = "?"
)

// Sysfs exports and configures pins through the GPIO class. Pin numbers are the kernel's, which
// on a Pi are BCM numbers. A failed step is reported with its name and earlier steps are left as
// they are.
type Sysfs struct {
	root   string
	logger logging.Logger
	owner  fileOwner
}

// NewSysfs returns a Sysfs rooted at root, usually DefaultSysfsRoot.
func NewSysfs(root string, logger logging.Logger) *Sysfs {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Sysfs{
		root:   root,
		logger: logger,
		owner:  realOwner(),
	}
}

// ExportedPin is one line of the exports listing.
type ExportedPin struct {
	Pin       int
	Direction string
	Value     string
	Edge      string
}

func validSysfsPin(pin int) error {
	if pin < 0 || pin > MaxSysfsPin {
		return board.NewInvalidPinError(pin, board.SchemeBCM)
	}
	return nil
}

func (s *Sysfs) pinDir(pin int) string {
	return filepath.Join(s.root, fmt.Sprintf("gpio%d", pin))
}

// ValuePath returns the value attribute of an exported pin.
func (s *Sysfs) ValuePath(pin int) string {
	return filepath.Join(s.pinDir(pin), "value")
}

func (s *Sysfs) exported(pin int) bool {
	_, err := os.Stat(s.pinDir(pin))
	return err == nil
}

// Export makes pin available under the class directory and sets its direction. The value and edge
// attributes are handed to the invoking user so later commands need no privileges.
func (s *Sysfs) Export(pin int, dir board.Direction) error {
	if err := validSysfsPin(pin); err != nil {
		return err
	}
	if dir < board.DirectionIn || dir > board.DirectionLow {
		return errors.Wrapf(board.ErrInvalidArgument, "unknown direction %d", dir)
	}
	if err := s.export(pin); err != nil {
		return err
	}
	if err := writeAttribute(filepath.Join(s.pinDir(pin), "direction"), dir.String()); err != nil {
		return board.NewIOError(err, fmt.Sprintf("set direction of gpio%d", pin))
	}
	s.changeOwner(pin)
	return nil
}

func (s *Sysfs) export(pin int) error {
	if s.exported(pin) {
		return nil
	}
	if err := writeAttribute(filepath.Join(s.root, "export"), strconv.Itoa(pin)); err != nil {
		return board.NewIOError(err, fmt.Sprintf("export gpio%d", pin))
	}
	return nil
}

// SetEdge exports pin as an input and sets the edge its value file signals on. EdgeNone turns
// signalling off.
func (s *Sysfs) SetEdge(pin int, edge board.Edge) error {
	if err := validSysfsPin(pin); err != nil {
		return err
	}
	if edge < board.EdgeNone || edge > board.EdgeBoth {
		return errors.Wrapf(board.ErrInvalidArgument, "unknown edge %d", edge)
	}
	if err := s.Export(pin, board.DirectionIn); err != nil {
		return err
	}
	if err := writeAttribute(filepath.Join(s.pinDir(pin), "edge"), edge.String()); err != nil {
		return board.NewIOError(err, fmt.Sprintf("set edge of gpio%d", pin))
	}
	return nil
}

// Unexport removes pin from the class directory.
func (s *Sysfs) Unexport(pin int) error {
	if err := validSysfsPin(pin); err != nil {
		return err
	}
	if err := writeAttribute(filepath.Join(s.root, "unexport"), strconv.Itoa(pin)); err != nil {
		return board.NewIOError(err, fmt.Sprintf("unexport gpio%d", pin))
	}
	return nil
}

// UnexportAll unexports every pin. Pins that were not exported are skipped.
func (s *Sysfs) UnexportAll() error {
	var errs []error
	for pin := 0; pin <= MaxSysfsPin; pin++ {
		err := s.Unexport(pin)
		if errors.Is(err, unix.EINVAL) {
			continue
		}
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// ListExports returns every exported pin in order.
func (s *Sysfs) ListExports() []ExportedPin {
	var pins []ExportedPin
	for pin := 0; pin <= MaxSysfsPin; pin++ {
		dir := s.pinDir(pin)
		direction, err := readAttribute(filepath.Join(dir, "direction"))
		if err != nil {
			continue
		}
		pins = append(pins, ExportedPin{
			Pin:       pin,
			Direction: direction,
			Value:     readAttributeOr(filepath.Join(dir, "value"), Unknown),
			Edge:      readAttributeOr(filepath.Join(dir, "edge"), Unknown),
		})
	}
	return pins
}

// ReadValue returns the level of an exported pin.
func (s *Sysfs) ReadValue(pin int) (bool, error) {
	if err := validSysfsPin(pin); err != nil {
		return false, err
	}
	value, err := readAttribute(s.ValuePath(pin))
	if err != nil {
		return false, board.NewIOError(err, fmt.Sprintf("read value of gpio%d", pin))
	}
	return value != "0", nil
}

// Sysfs attributes must be written in a single write to an existing file.
func writeAttribute(path, value string) error {
	//nolint:gosec
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.WriteString(value + "\n")
	return multierr.Combine(err, f.Close())
}

func readAttribute(path string) (string, error) {
	//nolint:gosec
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(contents)), nil
}

func readAttributeOr(path, fallback string) string {
	value, err := readAttribute(path)
	if err != nil {
		return fallback
	}
	return value
}
