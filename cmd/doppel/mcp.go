package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/doppelcode/doppel/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for AI assistant integration",
		Description: `Starts an MCP server over stdio exposing clone detection tools to
AI assistants.

Available tools:
  - scan_clones:   scan paths for duplicated code and cluster the matches
  - compare_files: check two files for shared fragments

To use with Claude Desktop, add to your configuration:
  {
    "mcpServers": {
      "doppel": {
        "command": "doppel",
        "args": ["mcp"]
      }
    }
  }`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the server.json registry manifest and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	return mcpserver.NewServer(version).Run(context.Background())
}
