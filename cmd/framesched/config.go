package main

import (
	"fmt"

	framescheduler "github.com/Swind/go-frame-scheduler"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration as YAML",

		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
		},

		Action: configAction,
	}
}

func configAction(c *cli.Context) error {
	cfg := framescheduler.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := framescheduler.LoadConfig(path)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		cfg = loaded
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	fmt.Fprint(c.App.Writer, string(out))
	return nil
}
