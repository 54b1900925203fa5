package main

import (
	"fmt"
	"os"

	framescheduler "github.com/Swind/go-frame-scheduler"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "framesched",
		Usage:   "run synthetic frames through the parallel system scheduler",
		Version: framescheduler.Version,
		Commands: []*cli.Command{
			RunCommand(),
			ConfigCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
