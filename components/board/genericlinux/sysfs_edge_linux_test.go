//go:build linux

package genericlinux

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/gpio/components/board"
)

func TestSysfsArmEdge(t *testing.T) {
	sysfs, root := newFakeSysfs(t, 17)
	writeFakeFile(t, filepath.Join(root, "gpio17", "direction"), "out\n")
	writeFakeFile(t, filepath.Join(root, "gpio17", "value"), "1\n")

	waiter, err := sysfs.ArmEdge(17, board.EdgeRising)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, waiter.Close(), test.ShouldBeNil)
	}()

	test.That(t, readFakeFile(t, filepath.Join(root, "gpio17", "direction")), test.ShouldEqual, "in\n")
	test.That(t, readFakeFile(t, filepath.Join(root, "gpio17", "edge")), test.ShouldEqual, "rising\n")

	// the value file stays open and readable from the start on every read
	sw, ok := waiter.(*sysfsWaiter)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, sw.pin, test.ShouldEqual, board.CanonicalPin(17))
	for i := 0; i < 2; i++ {
		high, err := sw.level()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, high, test.ShouldBeTrue)
	}
}

func TestSysfsArmEdgeExportsFirst(t *testing.T) {
	sysfs, root := newFakeSysfs(t)

	// No kernel here creates the pin directory, so arming fails after the export request.
	_, err := sysfs.ArmEdge(22, board.EdgeBoth)
	test.That(t, errors.Is(err, board.ErrIOFailure), test.ShouldBeTrue)
	test.That(t, readFakeFile(t, filepath.Join(root, "export")), test.ShouldEqual, "22\n")
}

func TestSysfsArmEdgeRejectsBadPin(t *testing.T) {
	sysfs, root := newFakeSysfs(t)

	_, err := sysfs.ArmEdge(board.CanonicalPin(MaxSysfsPin+1), board.EdgeFalling)
	test.That(t, errors.Is(err, board.ErrInvalidPin), test.ShouldBeTrue)
	test.That(t, readFakeFile(t, filepath.Join(root, "export")), test.ShouldEqual, "")
}
