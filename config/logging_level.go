package config

import (
	"go.viam.com/gpio/logging"
)

// DefaultLogLevel is used when neither the command line nor the config asks for another level.
const DefaultLogLevel = logging.WARN

// EffectiveLogLevel returns the level the tool logs at. A debug request from either the command
// line or the config file wins; otherwise log_level applies.
func (conf *Config) EffectiveLogLevel(cmdLineDebugFlag bool) (logging.Level, error) {
	if cmdLineDebugFlag || conf.Debug {
		return logging.DEBUG, nil
	}
	if conf.LogLevel == "" {
		return DefaultLogLevel, nil
	}
	return logging.LevelFromString(conf.LogLevel)
}
