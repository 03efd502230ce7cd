package mcpserver

import (
	"encoding/json"
)

// Manifest is the server.json document published to the MCP registry,
// following the 2025-10-17 schema.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Repository points at the source hosting the server.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	ID     string `json:"id,omitempty"`
}

// Package tells a registry client how to obtain and launch the server.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

// Argument is one launch argument for the packaged server.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Transport names the wire transport the server speaks.
type Transport struct {
	Type string `json:"type"`
}

// GenerateManifest renders the registry manifest for the given release
// version. An empty version becomes 0.0.0 for local builds.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	manifest := Manifest{
		Schema:      "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json",
		Name:        "io.github.doppelcode/doppel",
		Description: "Deterministic near-duplicate code detection across languages using winnowing fingerprints",
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/doppelcode/doppel",
			Source: "github",
		},
		Packages: []Package{
			{
				RegistryType: "oci",
				Identifier:   "ghcr.io/doppelcode/doppel:" + version,
				PackageArguments: []Argument{
					{Type: "positional", Value: "mcp"},
				},
				Transport: Transport{
					Type: "stdio",
				},
			},
		},
	}

	return json.MarshalIndent(manifest, "", "  ")
}
