// Package config loads and validates doppel configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for doppel.
type Config struct {
	// Similarity detection knobs
	Detect DetectConfig `koanf:"detect" toml:"detect" json:"detect"`

	// Fragment extraction knobs
	Extract ExtractConfig `koanf:"extract" toml:"extract" json:"extract"`

	// File discovery settings
	Scan ScanConfig `koanf:"scan" toml:"scan" json:"scan"`

	// Report and artifact settings
	Output OutputConfig `koanf:"output" toml:"output" json:"output"`
}

// DetectConfig controls the fingerprinting and clustering pipeline.
type DetectConfig struct {
	K            int     `koanf:"k" toml:"k" json:"k"`
	W            int     `koanf:"w" toml:"w" json:"w"`
	MinTokens    int     `koanf:"min_tokens" toml:"min_tokens" json:"min_tokens"`
	MinJaccard   float64 `koanf:"min_jaccard" toml:"min_jaccard" json:"min_jaccard"`
	MinSharedFPs int     `koanf:"min_shared_fps" toml:"min_shared_fps" json:"min_shared_fps"`
	TopK         int     `koanf:"topk" toml:"topk" json:"topk"`
	Workers      int     `koanf:"workers" toml:"workers" json:"workers"` // 0 means auto
}

// ExtractConfig controls how files are carved into fragments.
type ExtractConfig struct {
	Mode          string `koanf:"mode" toml:"mode" json:"mode"` // blocks, windows, both
	MinBlockLines int    `koanf:"min_block_lines" toml:"min_block_lines" json:"min_block_lines"`
	WinLines      int    `koanf:"win_lines" toml:"win_lines" json:"win_lines"`
	WinStep       int    `koanf:"win_step" toml:"win_step" json:"win_step"`
}

// ScanConfig controls file discovery.
type ScanConfig struct {
	// Langs restricts scanning to the named languages. Empty means all.
	Langs     []string      `koanf:"langs" toml:"langs" json:"langs,omitempty"`
	MaxFileKB int           `koanf:"max_file_kb" toml:"max_file_kb" json:"max_file_kb"`
	Exclude   ExcludeConfig `koanf:"exclude" toml:"exclude" json:"exclude"`
}

// MaxFileBytes returns the file size cap in bytes, 0 for unlimited.
func (s ScanConfig) MaxFileBytes() int64 {
	return int64(s.MaxFileKB) * 1024
}

// ExcludeConfig defines file exclusion rules.
type ExcludeConfig struct {
	Dirs      []string `koanf:"dirs" toml:"dirs" json:"dirs,omitempty"`
	Patterns  []string `koanf:"patterns" toml:"patterns" json:"patterns,omitempty"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" json:"gitignore"`
}

// OutputConfig controls report rendering and artifact paths.
type OutputConfig struct {
	Out         string `koanf:"out" toml:"out" json:"out"`
	Report      string `koanf:"report" toml:"report" json:"report"`
	MaxClusters int    `koanf:"max_clusters" toml:"max_clusters" json:"max_clusters"`
	Format      string `koanf:"format" toml:"format" json:"format"` // text, json, markdown, toon
	Color       bool   `koanf:"color" toml:"color" json:"color"`
	Verbose     bool   `koanf:"verbose" toml:"verbose" json:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Detect: DetectConfig{
			K:            8,
			W:            10,
			MinTokens:    80,
			MinJaccard:   0.55,
			MinSharedFPs: 12,
			TopK:         50,
			Workers:      0,
		},
		Extract: ExtractConfig{
			Mode:          "blocks",
			MinBlockLines: 12,
			WinLines:      20,
			WinStep:       10,
		},
		Scan: ScanConfig{
			MaxFileKB: 512,
			Exclude: ExcludeConfig{
				Dirs: []string{
					".git", ".hg", ".svn",
					"node_modules", "vendor", "dist", "build", "target",
					".next", ".nuxt", "__pycache__", ".venv", "venv",
					"coverage", ".idea", ".vscode",
				},
				Gitignore: true,
			},
		},
		Output: OutputConfig{
			Out:         "clones.json",
			Report:      "clones.txt",
			MaxClusters: 50,
			Format:      "text",
			Color:       true,
			Verbose:     false,
		},
	}
}

// loadRaw reads a config file into a koanf instance, choosing the
// parser by file extension. Unknown extensions are treated as TOML.
func loadRaw(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	return k, nil
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k, err := loadRaw(path)
	if err != nil {
		return nil, err
	}

	// Unmarshal over the defaults so partial files inherit them
	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfig returns the path of the first config file present in the
// standard search locations, or "" when none exists.
func FindConfig() string {
	// Standard config file names to search for
	configNames := []string{
		"doppel.toml",
		"doppel.yaml",
		"doppel.yml",
		"doppel.json",
		".doppel.toml",
		".doppel.yaml",
		".doppel.yml",
		".doppel.json",
	}

	// Search in current directory and .doppel directory
	searchDirs := []string{".", ".doppel"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := FindConfig(); path != "" {
		cfg, err := Load(path)
		if err == nil {
			return cfg
		}
	}

	return DefaultConfig()
}
