package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/doppelcode/doppel/pkg/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a doppel configuration file with defaults",
		Description: `Creates a new doppel.toml configuration file in the current
directory with the built-in defaults written out, ready to edit.

Examples:
  doppel init                        # Creates ./doppel.toml
  doppel init -o .doppel/doppel.toml # Custom location
  doppel init --force                # Overwrite an existing file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "doppel.toml",
				Usage:   "Output file path",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	path := c.String("output")

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", path)
	fmt.Println("\nEdit the file to adjust thresholds, then run:")
	fmt.Println("  doppel scan")
	return nil
}

// generateDefaultConfig renders the default configuration as commented
// TOML.
func generateDefaultConfig() (string, error) {
	cfg := config.DefaultConfig()

	data, err := toml.Marshal(*cfg)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Doppel configuration\n")
	sb.WriteString("# Documentation: https://github.com/doppelcode/doppel\n")
	sb.WriteString("\n")
	sb.Write(data)
	return sb.String(), nil
}
