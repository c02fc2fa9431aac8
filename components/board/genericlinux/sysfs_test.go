package genericlinux

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/logging"
)

// newFakeSysfs builds a class directory with the given pins already exported as inputs.
func newFakeSysfs(t *testing.T, exported ...int) (*Sysfs, string) {
	t.Helper()
	root := t.TempDir()
	writeFakeFile(t, filepath.Join(root, "export"), "")
	writeFakeFile(t, filepath.Join(root, "unexport"), "")
	for _, pin := range exported {
		dir := filepath.Join(root, fmt.Sprintf("gpio%d", pin))
		test.That(t, os.Mkdir(dir, 0o755), test.ShouldBeNil)
		writeFakeFile(t, filepath.Join(dir, "direction"), "in\n")
		writeFakeFile(t, filepath.Join(dir, "value"), "0\n")
		writeFakeFile(t, filepath.Join(dir, "edge"), "none\n")
	}
	return NewSysfs(root, logging.NewTestLogger(t)), root
}

func writeFakeFile(t *testing.T, path, contents string) {
	t.Helper()
	test.That(t, os.WriteFile(path, []byte(contents), 0o644), test.ShouldBeNil)
}

func readFakeFile(t *testing.T, path string) string {
	t.Helper()
	//nolint:gosec
	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	return string(contents)
}

func TestExportAlreadyExported(t *testing.T) {
	sysfs, root := newFakeSysfs(t, 17)

	test.That(t, sysfs.Export(17, board.DirectionHigh), test.ShouldBeNil)
	test.That(t, readFakeFile(t, filepath.Join(root, "export")), test.ShouldEqual, "")
	test.That(t, readFakeFile(t, filepath.Join(root, "gpio17", "direction")), test.ShouldEqual, "high\n")
}

func TestExportFailureNamesStep(t *testing.T) {
	sysfs, root := newFakeSysfs(t)

	err := sysfs.Export(17, board.DirectionOut)
	test.That(t, errors.Is(err, board.ErrIOFailure), test.ShouldBeTrue)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "set direction of gpio17")

	// the export itself is not rolled back
	test.That(t, readFakeFile(t, filepath.Join(root, "export")), test.ShouldEqual, "17\n")
}

func TestExportValidatesFirst(t *testing.T) {
	sysfs, root := newFakeSysfs(t)

	err := sysfs.Export(64, board.DirectionIn)
	test.That(t, errors.Is(err, board.ErrInvalidPin), test.ShouldBeTrue)
	err = sysfs.Export(-1, board.DirectionIn)
	test.That(t, errors.Is(err, board.ErrInvalidPin), test.ShouldBeTrue)
	err = sysfs.Export(17, board.Direction(9))
	test.That(t, errors.Is(err, board.ErrInvalidArgument), test.ShouldBeTrue)
	err = sysfs.SetEdge(17, board.Edge(9))
	test.That(t, errors.Is(err, board.ErrInvalidArgument), test.ShouldBeTrue)

	test.That(t, readFakeFile(t, filepath.Join(root, "export")), test.ShouldEqual, "")
}

func TestSetEdge(t *testing.T) {
	sysfs, root := newFakeSysfs(t, 4)
	writeFakeFile(t, filepath.Join(root, "gpio4", "direction"), "out\n")

	test.That(t, sysfs.SetEdge(4, board.EdgeFalling), test.ShouldBeNil)
	test.That(t, readFakeFile(t, filepath.Join(root, "gpio4", "direction")), test.ShouldEqual, "in\n")
	test.That(t, readFakeFile(t, filepath.Join(root, "gpio4", "edge")), test.ShouldEqual, "falling\n")

	test.That(t, sysfs.SetEdge(4, board.EdgeNone), test.ShouldBeNil)
	test.That(t, readFakeFile(t, filepath.Join(root, "gpio4", "edge")), test.ShouldEqual, "none\n")
}

func TestListExportsEmpty(t *testing.T) {
	sysfs, _ := newFakeSysfs(t)
	test.That(t, sysfs.ListExports(), test.ShouldBeEmpty)
}

func TestListExports(t *testing.T) {
	sysfs, root := newFakeSysfs(t, 17, 4)
	writeFakeFile(t, filepath.Join(root, "gpio4", "value"), "1\n")
	writeFakeFile(t, filepath.Join(root, "gpio4", "edge"), "rising\n")
	test.That(t, os.Remove(filepath.Join(root, "gpio17", "edge")), test.ShouldBeNil)
	// a directory with no direction is not listed
	test.That(t, os.Mkdir(filepath.Join(root, "gpio22"), 0o755), test.ShouldBeNil)

	test.That(t, sysfs.ListExports(), test.ShouldResemble, []ExportedPin{
		{Pin: 4, Direction: "in", Value: "1", Edge: "rising"},
		{Pin: 17, Direction: "in", Value: "0", Edge: Unknown},
	})
}

func TestReadValue(t *testing.T) {
	sysfs, root := newFakeSysfs(t, 27)
	high, err := sysfs.ReadValue(27)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeFalse)

	writeFakeFile(t, filepath.Join(root, "gpio27", "value"), "1\n")
	high, err = sysfs.ReadValue(27)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)

	_, err = sysfs.ReadValue(5)
	test.That(t, errors.Is(err, board.ErrIOFailure), test.ShouldBeTrue)
}

func TestUnexport(t *testing.T) {
	sysfs, root := newFakeSysfs(t, 17)
	test.That(t, sysfs.Unexport(17), test.ShouldBeNil)
	test.That(t, readFakeFile(t, filepath.Join(root, "unexport")), test.ShouldEqual, "17\n")

	test.That(t, sysfs.UnexportAll(), test.ShouldBeNil)
	test.That(t, readFakeFile(t, filepath.Join(root, "unexport")), test.ShouldEqual, fmt.Sprintf("%d\n", MaxSysfsPin))
}

func TestUnexportAllCombinesFailures(t *testing.T) {
	sysfs, root := newFakeSysfs(t)
	test.That(t, os.Remove(filepath.Join(root, "unexport")), test.ShouldBeNil)

	err := sysfs.UnexportAll()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, MaxSysfsPin+1)
	test.That(t, errors.Is(err, board.ErrIOFailure), test.ShouldBeTrue)
}

func TestChangeOwnerOnlyWarns(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	sysfs, _ := newFakeSysfs(t, 17)
	sysfs.logger = logger

	var chowned []string
	sysfs.owner = fileOwner{uid: 1000, gid: 1000, chown: func(path string, uid, gid int) error {
		chowned = append(chowned, filepath.Base(path))
		return os.ErrPermission
	}}
	test.That(t, sysfs.Export(17, board.DirectionIn), test.ShouldBeNil)
	test.That(t, chowned, test.ShouldResemble, []string{"value", "edge"})
	test.That(t, logs.FilterMessage("unable to change ownership").Len(), test.ShouldEqual, 2)

	sysfs.owner.chown = func(path string, uid, gid int) error {
		return &os.PathError{Op: "chown", Path: path, Err: os.ErrNotExist}
	}
	test.That(t, sysfs.Export(17, board.DirectionIn), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("unable to change ownership").Len(), test.ShouldEqual, 2)
}
