package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by WithDefaults.
const (
	DefaultSuffix       = ".py"
	DefaultCloneDir     = "cloned_repos"
	DefaultOutputDir    = "raw"
	DefaultServerAddr   = ":8000"
	DefaultRunCacheSize = 32
)

// DefaultFormats are the sinks used when none are configured.
var DefaultFormats = []string{"csv", "json"}

// DefaultAllowedOrigins is the CORS allow-list used when none is configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173"}

// KnownFormats lists every sink name accepted in Formats.
var KnownFormats = []string{"csv", "json", "sqlite", "graph", "mermaid"}

// ProjectConfig holds project-level settings loaded from repograph.yml.
type ProjectConfig struct {
	Suffix         string   `yaml:"suffix,omitempty"`
	CloneDir       string   `yaml:"cloneDir,omitempty"`
	ExcludeDirs    []string `yaml:"excludeDirs,omitempty"`
	ExcludeGlobs   []string `yaml:"excludeGlobs,omitempty"`
	OutputDir      string   `yaml:"outputDir,omitempty"`
	Formats        []string `yaml:"formats,omitempty"`
	SQLitePath     string   `yaml:"sqlitePath,omitempty"`
	GraphPath      string   `yaml:"graphPath,omitempty"`
	ServerAddr     string   `yaml:"serverAddr,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	RunCacheSize   int      `yaml:"runCacheSize,omitempty"`
	Verbose        bool     `yaml:"verbose,omitempty"`
}

// Load attempts to read repograph.yml or repograph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"repograph.yml", "repograph.yaml"} {
		cfg, err := LoadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		return cfg, err
	}
	return &ProjectConfig{}, nil
}

// LoadFile reads one config file. A missing file is reported with an error
// satisfying os.IsNotExist.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// WithDefaults returns a copy of c with empty fields filled in.
func (c ProjectConfig) WithDefaults() ProjectConfig {
	if c.Suffix == "" {
		c.Suffix = DefaultSuffix
	}
	if c.CloneDir == "" {
		c.CloneDir = DefaultCloneDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if len(c.Formats) == 0 {
		c.Formats = append([]string(nil), DefaultFormats...)
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.OutputDir, "repograph.db")
	}
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.RunCacheSize <= 0 {
		c.RunCacheSize = DefaultRunCacheSize
	}
	return c
}

// Validate reports unknown formats and malformed settings.
func (c ProjectConfig) Validate() error {
	for _, f := range c.Formats {
		if !isKnownFormat(f) {
			return fmt.Errorf("unknown format %q (known: %s)", f, strings.Join(KnownFormats, ", "))
		}
	}
	if c.Suffix != "" && !strings.HasPrefix(c.Suffix, ".") {
		return fmt.Errorf("suffix %q must start with a dot", c.Suffix)
	}
	if c.RunCacheSize < 0 {
		return fmt.Errorf("runCacheSize must not be negative")
	}
	return nil
}

func isKnownFormat(f string) bool {
	for _, k := range KnownFormats {
		if k == f {
			return true
		}
	}
	return false
}
