package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigFile  = "lox.toml"
	DefaultPrompt      = "> "
	HistoryFileName    = ".lox_history"
	LoxHomeEnvVariable = "LOX_HOME"
)

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	// DebugAST is the dump format written before a run: json, yaml, text or empty.
	DebugAST    string `toml:"debug_ast"`
	Color       bool   `toml:"color"`
	ShowContext bool   `toml:"show_context"`

	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history_file"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		LogLevel:    "none",
		Color:       true,
		ShowContext: true,
		Prompt:      DefaultPrompt,
		HistoryFile: DefaultHistoryFile(),
	}
}

// LoadConfig overlays the TOML file at path onto cfg. Keys the file sets that
// Configuration does not know are reported as an error.
func LoadConfig(path string, cfg *Configuration) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to read config '%s': %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys in config '%s': %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDefaultConfig reads lox.toml from dir if it exists. A missing file is not
// an error.
func LoadDefaultConfig(dir string, cfg *Configuration) error {
	path := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return LoadConfig(path, cfg)
}

// LoxHome is $LOX_HOME, or the user's home directory when it is unset.
func LoxHome() string {
	if home := os.Getenv(LoxHomeEnvVariable); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func DefaultHistoryFile() string {
	return filepath.Join(LoxHome(), HistoryFileName)
}
