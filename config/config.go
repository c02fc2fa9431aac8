// Package config defines the optional configuration file of the gpio tool.
package config

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/logging"
)

// The interrupt backends.
const (
	InterruptSysfs   = "sysfs"
	InterruptChardev = "chardev"
)

// Config says how the tool reaches the hardware. Empty fields take the Raspberry Pi OS defaults.
type Config struct {
	// Numbering is the pin numbering scheme: bcm, physical, wiringpi or none.
	Numbering string `json:"numbering"`

	SysfsRoot   string `json:"sysfs_root"`
	GPIOMemPath string `json:"gpiomem_path"`
	MemPath     string `json:"mem_path"`
	RangesPath  string `json:"ranges_path"`
	ProcModules string `json:"proc_modules"`

	// Revision overrides the board revision read from /proc/cpuinfo, in hex.
	Revision string `json:"revision"`

	InterruptBackend string `json:"interrupt_backend"`
	// GPIOChip is the chardev backend's device, /dev/gpiochip0 when empty.
	GPIOChip         string `json:"gpiochip"`

	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"`
	Debug    bool   `json:"debug"`

	ConfigFilePath string `json:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if _, err := board.ParseNumberingScheme(conf.Numbering); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	switch conf.InterruptBackend {
	case "", InterruptSysfs, InterruptChardev:
	default:
		return utils.NewConfigValidationError(path,
			errors.Errorf("interrupt_backend must be %q or %q, not %q", InterruptSysfs, InterruptChardev, conf.InterruptBackend))
	}
	if conf.LogLevel != "" {
		if _, err := logging.LevelFromString(conf.LogLevel); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

// Scheme returns the configured numbering scheme.
func (conf *Config) Scheme() board.NumberingScheme {
	scheme, err := board.ParseNumberingScheme(conf.Numbering)
	if err != nil {
		return board.SchemeBCM
	}
	return scheme
}
