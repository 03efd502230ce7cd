package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	app := &cli.App{
		Name:     "doppel",
		Usage:    "Near-duplicate code detection CLI",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `Doppel finds near-duplicate code fragments across a codebase using
normalized token fingerprints, and groups them into clone clusters.
Identical inputs always produce identical reports.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C#, Kotlin, Ruby, PHP`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"DOPPEL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: startProfiling,
		After:  stopProfiling,
		Commands: []*cli.Command{
			scanCmd(),
			compareCmd(),
			initCmd(),
			configCmd(),
			mcpCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// startProfiling begins a CPU profile when --pprof is set. The open
// file handle rides in the app metadata until stopProfiling closes it.
func startProfiling(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}

	f, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	c.App.Metadata["pprofCPU"] = f
	return nil
}

// stopProfiling finishes the CPU profile and takes a heap snapshot
// after the command has run.
func stopProfiling(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}

	pprof.StopCPUProfile()
	if f, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
		f.Close()
		color.Green("CPU profile written to %s.cpu.pprof", prefix)
	}

	memFile, err := os.Create(prefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer memFile.Close()

	runtime.GC() // flush allocator stats before the heap snapshot
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	color.Green("Memory profile written to %s.mem.pprof", prefix)
	return nil
}
