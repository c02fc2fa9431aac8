package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/components/board/genericlinux"
	piimpl "go.viam.com/gpio/components/board/pi/impl"
)

func exportAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	dir, err := board.ParseDirection(c.Args().Get(1))
	if err != nil {
		return err
	}
	return b.Sysfs().Export(pin, dir)
}

func edgeAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	edge, err := board.ParseEdge(c.Args().Get(1))
	if err != nil {
		return err
	}
	return b.Sysfs().SetEdge(pin, edge)
}

func unexportAction(c *cli.Context, b *piimpl.Board) error {
	pin, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	return b.Sysfs().Unexport(pin)
}

func unexportAllAction(c *cli.Context, b *piimpl.Board) error {
	return b.Sysfs().UnexportAll()
}

func exportsAction(c *cli.Context, b *piimpl.Board) error {
	exports := b.Sysfs().ListExports()
	if len(exports) == 0 {
		return nil
	}
	fmt.Fprintln(c.App.Writer, "GPIO Pins exported:")
	t := table.NewWriter()
	t.AppendHeader(table.Row{"GPIO", "Direction", "Value", "Edge"})
	for _, exp := range exports {
		t.AppendRow(table.Row{exp.Pin, exp.Direction, exp.Value, exp.Edge})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// waitAction serves wfi, which takes one pin, and mwfi, which takes a comma separated list.
// Both block until every pin has seen the edge or the command is interrupted, printing a line per
// edge.
func waitAction(c *cli.Context, b *piimpl.Board) error {
	list := c.Args().Get(0)
	if c.Command.Name == "wfi" && strings.Contains(list, ",") {
		return errors.Wrap(board.ErrInvalidArgument, "wfi takes a single pin; use mwfi for several")
	}
	var pins []int
	for _, field := range strings.Split(list, ",") {
		pin, err := parsePin(strings.TrimSpace(field))
		if err != nil {
			return err
		}
		pins = append(pins, pin)
	}
	canonical, err := b.InterruptPins(pins)
	if err != nil {
		return err
	}
	asGiven := make(map[board.CanonicalPin]int, len(pins))
	for i, pin := range canonical {
		asGiven[pin] = pins[i]
	}

	// Edges on different pins are reported from different goroutines.
	var mu sync.Mutex
	onEdge := func(event genericlinux.EdgeEvent) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(c.App.Writer, "Interrupt on pin %d\n", asGiven[event.Pin])
	}

	if len(pins) == 1 {
		fmt.Fprintln(c.App.Writer, "Wait for one interrupt...")
	} else {
		fmt.Fprintf(c.App.Writer, "Wait for %d interrupts...\n", len(pins))
	}
	reg, err := b.WaitForInterrupts(pins, c.Args().Get(1), onEdge)
	if err != nil {
		return err
	}
	select {
	case <-reg.Done():
		return reg.Wait()
	case <-c.Context.Done():
		return c.Context.Err()
	}
}

func loadAction(c *cli.Context, b *piimpl.Board) error {
	baud := 0
	if c.NArg() > 1 {
		var err error
		if baud, err = parseInt("baud rate", c.Args().Get(1)); err != nil {
			return err
		}
	}
	return b.Modules().Load(c.Args().First(), baud)
}

func unloadAction(c *cli.Context, b *piimpl.Board) error {
	return b.Modules().Unload(c.Args().First())
}

func i2cDetectAction(c *cli.Context, b *piimpl.Board) error {
	return b.I2CDetect(c.App.Writer)
}

func resetAction(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, "GPIO Reset is dangerous and has been removed from the gpio command.")
	fmt.Fprintln(c.App.Writer, " - Please write a shell-script to reset the GPIO pins into the state")
	fmt.Fprintln(c.App.Writer, "   that you need them in for your applications.")
	return nil
}
