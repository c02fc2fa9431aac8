// Package main is the gpio command itself.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"go.viam.com/gpio/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := cli.NewApp(os.Stdout, os.Stderr)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "gpio: %v\n", err)
		os.Exit(1)
	}
}
