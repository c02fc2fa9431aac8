package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/physic"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/components/board/pi/bcm283x"
	picommon "go.viam.com/gpio/components/board/pi/common"
	piimpl "go.viam.com/gpio/components/board/pi/impl"
)

func modeAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	return b.SetPinMode(pin, c.Args().Get(1))
}

func qmodeAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	mode, err := b.HardwareMode(pin)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, strings.ToUpper(mode.String()))
	return nil
}

func printLevel(c *cli.Context, high bool) {
	if high {
		fmt.Fprintln(c.App.Writer, "1")
		return
	}
	fmt.Fprintln(c.App.Writer, "0")
}

func readAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	high, err := b.DigitalRead(pin)
	if err != nil {
		return err
	}
	printLevel(c, high)
	return nil
}

// parseLevel accepts up/on and down/off as well as numbers; any non-zero number is high.
func parseLevel(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "up", "on":
		return true, nil
	case "down", "off":
		return false, nil
	}
	n, err := parseInt("value", s)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func writeAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	high, err := parseLevel(c.Args().Get(1))
	if err != nil {
		return err
	}
	return b.DigitalWrite(pin, high)
}

func toggleAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	_, err = b.Toggle(pin)
	return err
}

func blinkAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	return b.Blink(c.Context, pin)
}

func areadAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	value, err := b.AnalogRead(pin)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, value)
	return nil
}

func awriteAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	value, err := parseInt("value", c.Args().Get(1))
	if err != nil {
		return err
	}
	return b.AnalogWrite(pin, value)
}

func pwmAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	value, err := parseUint32("value", c.Args().Get(1))
	if err != nil {
		return err
	}
	return b.PWMWrite(pin, value)
}

func pwmModeAction(mode board.PWMMode) boardAction {
	return func(c *cli.Context, b *piimpl.Board) error {
		return b.SetPWMMode(mode)
	}
}

func pwmRangeAction(c *cli.Context, b *piimpl.Board) error {
	rng, err := parseUint32("range", c.Args().First())
	if err != nil {
		return err
	}
	return b.SetPWMRange(rng)
}

func pwmClockAction(c *cli.Context, b *piimpl.Board) error {
	divisor, err := parseUint32("divisor", c.Args().First())
	if err != nil {
		return err
	}
	return b.SetPWMClock(divisor)
}

func pwmToneAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	freq, err := parseInt("frequency", c.Args().Get(1))
	if err != nil {
		return err
	}
	return b.PWMToneWrite(pin, freq)
}

func clockAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	hz, err := parseInt("frequency", c.Args().Get(1))
	if err != nil {
		return err
	}
	actual, err := b.ClockSet(pin, physic.Frequency(hz)*physic.Hertz)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, int64(actual/physic.Hertz))
	return nil
}

func driveAction(c *cli.Context, b *piimpl.Board) error {
	group, err := parseInt("group", c.Args().Get(0))
	if err != nil {
		return err
	}
	strength, err := parseInt("value", c.Args().Get(1))
	if err != nil {
		return err
	}
	return b.SetPadDrive(group, strength)
}

func bankAction(c *cli.Context, b *piimpl.Board) error {
	bank, err := parseInt("bank", c.Args().First())
	if err != nil {
		return err
	}
	value, err := b.ReadBank(bank)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "0x%08X\n", value)
	return nil
}

func readByteAction(format string) boardAction {
	return func(c *cli.Context, b *piimpl.Board) error {
		value, err := b.DigitalReadByte()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, format, value)
		return nil
	}
}

// writeByteAction takes the value in C notation: decimal, 0x hex or 0 octal.
func writeByteAction(c *cli.Context, b *piimpl.Board) error {
	arg := c.Args().First()
	value, err := cast.ToIntE(arg)
	if err != nil || value < 0 || value > 0xff {
		return errors.Wrapf(board.ErrInvalidArgument, "%q is not a byte", arg)
	}
	return b.DigitalWriteByte(byte(value))
}

func usbPowerAction(c *cli.Context, b *piimpl.Board) error {
	var high bool
	switch strings.ToLower(c.Args().First()) {
	case "high", "hi":
		high = true
	case "low", "lo":
	default:
		return errors.Wrapf(board.ErrInvalidArgument, "usb power must be high or low, not %q", c.Args().First())
	}
	if err := b.SetUSBPower(high); err != nil {
		return err
	}
	notice := color.New(color.FgGreen)
	if high {
		notice.Fprintln(c.App.Writer, "Switched to HIGH current USB (1.2A)")
	} else {
		notice.Fprintln(c.App.Writer, "Switched to LOW current USB (600mA)")
	}
	return nil
}

func (r *runner) versionAction(c *cli.Context) error {
	out := c.App.Writer
	fmt.Fprintf(out, "gpio version: %s\n", Version)
	if r.conf.Scheme() == board.SchemeUninitialized {
		return nil
	}
	b, err := r.openBoard(r.conf)
	if err != nil {
		return errors.Wrap(err, c.Command.Name)
	}
	desc := b.Descriptor()

	fmt.Fprintln(out)
	color.New(color.Bold).Fprintln(out, "Raspberry Pi Details:")
	fmt.Fprintf(out, "  Type: %s, Revision: %s, Memory: %dMB, Maker: %s\n",
		desc.Model, desc.Revision, desc.MemoryMB, desc.Maker)
	fmt.Fprintf(out, "  Processor: %s, Layout: %s\n", desc.Processor, desc.Layout)
	if desc.WarrantyVoid {
		fmt.Fprintln(out, "  * Warranty void: the board has been overvolted.")
	}
	if model := picommon.DeviceTreeModel(); model != "" {
		fmt.Fprintln(out, "  * Device tree is enabled.")
		fmt.Fprintf(out, "  *--> %s\n", model)
	}
	gpiomem := r.conf.GPIOMemPath
	if gpiomem == "" {
		gpiomem = bcm283x.DefaultMapConfig().GPIOMemPath
	}
	if _, err := os.Stat(gpiomem); err == nil {
		fmt.Fprintln(out, "  * This Raspberry Pi supports user-level GPIO access.")
	} else {
		fmt.Fprintln(out, "  * Root or sudo required for GPIO access.")
	}
	return nil
}
