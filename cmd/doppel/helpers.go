package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/doppelcode/doppel/pkg/config"
)

// getPaths returns the positional path arguments, defaulting to the
// current directory. urfave/cli stops flag parsing at the first
// positional argument, so trailing flags (and their values) land in
// Args and are filtered back out here.
func getPaths(c *cli.Context) []string {
	var paths []string
	skipNext := false
	for _, arg := range c.Args().Slice() {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") {
				skipNext = true
			}
			continue
		}
		paths = append(paths, arg)
	}
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

// getTrailingFlag resolves a string flag that may appear after the
// positional arguments, where urfave/cli no longer parses it.
func getTrailingFlag(c *cli.Context, name, short, defaultValue string) string {
	value := defaultValue
	if c.IsSet(name) {
		value = c.String(name)
	}
	args := c.Args().Slice()
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--"+name || arg == "-"+short:
			if i+1 < len(args) {
				value = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--"+name+"="):
			value = strings.TrimPrefix(arg, "--"+name+"=")
		case strings.HasPrefix(arg, "-"+short+"="):
			value = strings.TrimPrefix(arg, "-"+short+"=")
		}
	}
	return value
}

// loadConfig resolves the effective configuration: the --config file
// when given, otherwise the first discovered config file, otherwise
// built-in defaults. Global output flags override the file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}
	if format := getTrailingFlag(c, "format", "f", ""); format != "" {
		cfg.Output.Format = format
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}
