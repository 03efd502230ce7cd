package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/doppelcode/doppel/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and validate doppel configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Action: runConfigShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the discovered (or --config) configuration file",
				Action: runConfigValidate,
			},
		},
	}
}

// configPath returns the explicit --config path or the first discovered
// config file, which may be empty.
func configPath(c *cli.Context) string {
	if path := c.String("config"); path != "" {
		return path
	}
	return config.FindConfig()
}

func runConfigShow(c *cli.Context) error {
	var cfg *config.Config
	if path := configPath(c); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		fmt.Printf("# Configuration from: %s\n\n", path)
	} else {
		cfg = config.DefaultConfig()
		fmt.Println("# Default configuration (no config file found)")
		fmt.Println()
	}

	data, err := toml.Marshal(*cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(c *cli.Context) error {
	path := configPath(c)
	if path == "" {
		color.Yellow("No config file found. Default configuration is valid.")
		return nil
	}
	if err := config.ValidateFile(path); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	color.Green("Configuration valid: %s", path)
	return nil
}
