// Package config loads optional per-project settings from a
// goscript.toml found beside the script (falling back to the working
// directory). A missing file is the zero configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the per-project configuration file.
const FileName = "goscript.toml"

// Config is the full configuration surface.
type Config struct {
	Build Build `toml:"build"`
	Run   Run   `toml:"run"`
}

// Build configures the compilation step.
type Build struct {
	// Imports are library references appended to every compilation,
	// the project's default references.
	Imports []string `toml:"imports"`
	// KeepTemp retains rewritten temporary files for debugging.
	KeepTemp bool `toml:"keep_temp"`
}

// Run configures invocation.
type Run struct {
	// Entry is the default Type.Method selector used when no -entry
	// flag is given.
	Entry string `toml:"entry"`
}

// Load finds and decodes the config for a script. Search order: the
// script's directory, then the working directory. No file means a
// zero Config and no error.
func Load(scriptPath string) (*Config, error) {
	dirs := []string{filepath.Dir(scriptPath)}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return Decode(path)
	}
	return &Config{}, nil
}

// Decode reads one config file.
func Decode(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return &cfg, nil
}
