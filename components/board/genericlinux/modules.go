package genericlinux

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/logging"
)

const (
	// DefaultProcModules lists the loaded kernel modules.
	DefaultProcModules = "/proc/modules"
	// DefaultDeviceTree exists when the kernel was booted with a device tree.
	DefaultDeviceTree = "/proc/device-tree"
)

// Directories searched for modprobe and rmmod. PATH is not consulted, since the tool may run with
// elevated privileges.
var toolDirs = []string{"/sbin", "/usr/sbin", "/bin", "/usr/bin", "/usr/local/sbin", "/usr/local/bin"}

// ModuleLoaded reports whether the module name is in the modules list at path.
func ModuleLoaded(path, name string) (bool, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return false, board.NewIOError(err, "read module list")
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == name {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, board.NewIOError(err, "read module list")
	}
	return false, nil
}

// FindExecutable looks for name in the fixed tool directories.
func FindExecutable(name string) (string, error) {
	for _, dir := range toolDirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0 {
			return path, nil
		}
	}
	return "", errors.Wrapf(board.ErrCapabilityUnsupported, "%s not found in %s", name, strings.Join(toolDirs, ":"))
}

// Modules loads and unloads the kernel drivers for the SPI and I2C buses.
// Device tree kernels load bus drivers from overlays instead, so both operations refuse there.
type Modules struct {
	procModules string
	deviceTree  string
	logger      logging.Logger
	run         func(name string, args ...string) error
	find        func(name string) (string, error)
	runTo       func(out io.Writer, path string, args ...string) error
}

// NewModules returns a Modules that consults procModules for what is loaded.
func NewModules(procModules string, logger logging.Logger) *Modules {
	if procModules == "" {
		procModules = DefaultProcModules
	}
	return &Modules{
		procModules: procModules,
		deviceTree:  DefaultDeviceTree,
		logger:      logger,
		run:         runTool,
		find:        FindExecutable,
		runTo:       runToolTo,
	}
}

func (m *Modules) check(bus string) ([]string, error) {
	modules, ok := busModules[bus]
	if !ok {
		return nil, errors.Wrapf(board.ErrInvalidArgument, "unknown bus %q, want spi or i2c", bus)
	}
	if _, err := os.Stat(m.deviceTree); err == nil {
		return nil, errors.Wrapf(board.ErrCapabilityUnsupported,
			"the kernel uses a device tree; enable %s with raspi-config or a dtparam instead", bus)
	}
	return modules, nil
}

// Bus modules, in load order.
var busModules = map[string][]string{
	"spi": {"spi_bcm2708"},
	"i2c": {"i2c_dev", "i2c_bcm2708"},
}

// Load loads the modules of bus, skipping those already loaded. For i2c, baudKHz is passed to the
// bus driver when it is greater than zero.
func (m *Modules) Load(bus string, baudKHz int) error {
	modules, err := m.check(bus)
	if err != nil {
		return err
	}
	for _, module := range modules {
		loaded, err := ModuleLoaded(m.procModules, module)
		if err != nil {
			return err
		}
		if loaded {
			m.logger.Debugw("module already loaded", "module", module)
			continue
		}
		args := []string{module}
		if strings.HasPrefix(module, "i2c_bcm") && baudKHz > 0 {
			args = append(args, "baudrate="+strconv.Itoa(baudKHz*1000))
		}
		if err := m.run("modprobe", args...); err != nil {
			return err
		}
	}
	return nil
}

// Unload removes the modules of bus in reverse order, skipping those not loaded.
func (m *Modules) Unload(bus string) error {
	modules, err := m.check(bus)
	if err != nil {
		return err
	}
	for i := len(modules) - 1; i >= 0; i-- {
		loaded, err := ModuleLoaded(m.procModules, modules[i])
		if err != nil {
			return err
		}
		if !loaded {
			continue
		}
		if err := m.run("rmmod", "-f", modules[i]); err != nil {
			return err
		}
	}
	return nil
}

// I2CDetect scans i2c bus with i2cdetect, writing its table to out. The i2c_dev module must be
// loaded.
func (m *Modules) I2CDetect(bus int, out io.Writer) error {
	path, err := m.find("i2cdetect")
	if err != nil {
		return err
	}
	loaded, err := ModuleLoaded(m.procModules, "i2c_dev")
	if err != nil {
		return err
	}
	if !loaded {
		return errors.Wrap(board.ErrSetupFailed, "the I2C kernel modules are not loaded; try gpio load i2c")
	}
	m.logger.Debugw("scanning i2c", "bus", bus, "tool", path)
	return m.runTo(out, path, "-y", strconv.Itoa(bus))
}

func runToolTo(out io.Writer, path string, args ...string) error {
	//nolint:gosec
	cmd := exec.Command(path, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(board.ErrSetupFailed, "%s %s: %v", filepath.Base(path), strings.Join(args, " "), err)
	}
	return nil
}

func runTool(name string, args ...string) error {
	path, err := FindExecutable(name)
	if err != nil {
		return err
	}
	//nolint:gosec
	out, err := exec.Command(path, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(board.ErrSetupFailed, "%s %s: %v: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
