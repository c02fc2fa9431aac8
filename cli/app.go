// Package cli contains the gpio command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/gpio/components/board"
	piimpl "go.viam.com/gpio/components/board/pi/impl"
)

// Global flags.
const (
	flagGPIO   = "gpio"
	flagPhys   = "phys"
	flagWPi    = "wpi"
	flagUninit = "uninit"
	flagConfig = "config"
	flagDebug  = "debug"
)

// Version is the tool version, set at link time.
var Version = "dev"

// NewApp returns the gpio application writing command output to out and diagnostics to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return newApp(out, errOut, piimpl.Open)
}

func newApp(out, errOut io.Writer, open BoardOpener) *cli.App {
	r := &runner{out: out, errOut: errOut, open: open}
	return &cli.App{
		Name:            "gpio",
		Usage:           "read, write and configure Raspberry Pi GPIO pins",
		Version:         Version,
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagGPIO,
				Aliases: []string{"g", "b"},
				Usage:   "number pins by BCM GPIO (the default)",
			},
			&cli.BoolFlag{
				Name:    flagPhys,
				Aliases: []string{"1", "p"},
				Usage:   "number pins by physical header position",
			},
			&cli.BoolFlag{
				Name:    flagWPi,
				Aliases: []string{"w"},
				Usage:   "number pins the wiringPi way",
			},
			&cli.BoolFlag{
				Name:    flagUninit,
				Aliases: []string{"z"},
				Usage:   "skip hardware setup; only sysfs commands work",
			},
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				EnvVars: []string{"GPIO_CONFIG"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				EnvVars: []string{"GPIO_DEBUG"},
				Usage:   "enable debug logging",
			},
		},
		Before: r.setup,
		After:  r.close,
		Commands: []*cli.Command{
			{
				Name:      "mode",
				Usage:     "set the mode or pull of a pin: in out pwm pwmTone clock up down tri alt0-alt5",
				ArgsUsage: "<pin> <mode>",
				Action:    r.withBoard(2, 2, modeAction),
			},
			{
				Name:      "qmode",
				Usage:     "print the function the hardware has selected for a pin",
				ArgsUsage: "<pin>",
				Action:    r.withBoard(1, 1, qmodeAction),
			},
			{
				Name:      "read",
				Usage:     "print the level of a pin",
				ArgsUsage: "<pin>",
				Action:    r.withBoard(1, 1, readAction),
			},
			{
				Name:      "write",
				Usage:     "drive a pin high or low",
				ArgsUsage: "<pin> <0|1|up|on|down|off>",
				Action:    r.withBoard(2, 2, writeAction),
			},
			{
				Name:      "toggle",
				Usage:     "invert the level of a pin",
				ArgsUsage: "<pin>",
				Action:    r.withBoard(1, 1, toggleAction),
			},
			{
				Name:      "blink",
				Usage:     "toggle a pin every half second until interrupted",
				ArgsUsage: "<pin>",
				Action:    r.withBoard(1, 1, blinkAction),
			},
			{
				Name:      "aread",
				Usage:     "print an analog input",
				ArgsUsage: "<pin>",
				Action:    r.withBoard(1, 1, areadAction),
			},
			{
				Name:      "awrite",
				Usage:     "write an analog output",
				ArgsUsage: "<pin> <value>",
				Action:    r.withBoard(2, 2, awriteAction),
			},
			{
				Name:      "pwm",
				Usage:     "set the PWM duty value of a pin",
				ArgsUsage: "<pin> <value>",
				Action:    r.withBoard(2, 2, pwmAction),
			},
			{
				Name:   "pwm-bal",
				Usage:  "use balanced PWM",
				Action: r.withBoard(0, 0, pwmModeAction(board.PWMBalanced)),
			},
			{
				Name:   "pwm-ms",
				Usage:  "use mark:space PWM",
				Action: r.withBoard(0, 0, pwmModeAction(board.PWMMarkSpace)),
			},
			{
				Name:      "pwmr",
				Usage:     "set the PWM range",
				ArgsUsage: "<range>",
				Action:    r.withBoard(1, 1, pwmRangeAction),
			},
			{
				Name:      "pwmc",
				Usage:     "set the PWM clock divisor",
				ArgsUsage: "<divisor>",
				Action:    r.withBoard(1, 1, pwmClockAction),
			},
			{
				Name:      "pwmTone",
				Usage:     "play a tone on a pin in pwmTone mode; 0 stops it",
				ArgsUsage: "<pin> <hz>",
				Action:    r.withBoard(2, 2, pwmToneAction),
			},
			{
				Name:      "clock",
				Usage:     "run the clock of a pin and print the frequency achieved",
				ArgsUsage: "<pin> <hz>",
				Action:    r.withBoard(2, 2, clockAction),
			},
			{
				Name:      "drive",
				Usage:     "set the drive strength of a pad group",
				ArgsUsage: "<group 0-2> <value 0-7>",
				Action:    r.withBoard(2, 2, driveAction),
			},
			{
				Name:      "bank",
				Usage:     "print the level register of a bank",
				ArgsUsage: "<0|1>",
				Action:    r.withBoard(1, 1, bankAction),
			},
			{
				Name:   "rbx",
				Usage:  "read wiringPi pins 0-7 as a hex byte",
				Action: r.withBoard(0, 0, readByteAction("%02X\n")),
			},
			{
				Name:   "rbd",
				Usage:  "read wiringPi pins 0-7 as a decimal byte",
				Action: r.withBoard(0, 0, readByteAction("%d\n")),
			},
			{
				Name:      "wb",
				Usage:     "write a byte to wiringPi pins 0-7",
				ArgsUsage: "<value>",
				Action:    r.withBoard(1, 1, writeByteAction),
			},
			{
				Name:      "usbp",
				Usage:     "set the USB current limit on the B+ and Pi 2",
				ArgsUsage: "<high|low>",
				Action:    r.withBoard(1, 1, usbPowerAction),
			},
			{
				Name:      "export",
				Usage:     "export a BCM pin through sysfs",
				ArgsUsage: "<pin> <in|out|high|low>",
				Action:    r.withSysfs(2, 2, exportAction),
			},
			{
				Name:      "edge",
				Usage:     "export a BCM pin as an input and set its interrupt edge",
				ArgsUsage: "<pin> <none|rising|falling|both>",
				Action:    r.withSysfs(2, 2, edgeAction),
			},
			{
				Name:      "unexport",
				Usage:     "unexport a BCM pin",
				ArgsUsage: "<pin>",
				Action:    r.withSysfs(1, 1, unexportAction),
			},
			{
				Name:   "unexportall",
				Usage:  "unexport every pin",
				Action: r.withSysfs(0, 0, unexportAllAction),
			},
			{
				Name:   "exports",
				Usage:  "list the exported pins",
				Action: r.withSysfs(0, 0, exportsAction),
			},
			{
				Name:      "wfi",
				Usage:     "wait for an edge on a pin",
				ArgsUsage: "<pin> <rising|falling|both>",
				Action:    r.withBoard(2, 2, waitAction),
			},
			{
				Name:      "mwfi",
				Usage:     "wait until every listed pin has seen an edge",
				ArgsUsage: "<pin,pin,...> <rising|falling|both>",
				Action:    r.withBoard(2, 2, waitAction),
			},
			{
				Name:      "load",
				Usage:     "load the kernel modules of a bus",
				ArgsUsage: "<spi|i2c> [baudKHz]",
				Action:    r.withSysfs(1, 2, loadAction),
			},
			{
				Name:      "unload",
				Usage:     "unload the kernel modules of a bus",
				ArgsUsage: "<spi|i2c>",
				Action:    r.withSysfs(1, 1, unloadAction),
			},
			{
				Name:    "i2cdetect",
				Aliases: []string{"i2cd"},
				Usage:   "scan the header's i2c bus with i2cdetect",
				Action:  r.withBoard(0, 0, i2cDetectAction),
			},
			{
				Name:   "reset",
				Usage:  "removed; prints why",
				Action: resetAction,
			},
			{
				Name:   "version",
				Usage:  "print the tool version and the board it runs on",
				Action: r.versionAction,
			},
		},
	}
}
