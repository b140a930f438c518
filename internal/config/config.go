// Package config provides configuration loading for maills.
//
// Configuration is layered, highest precedence last:
//
//  1. Hardcoded defaults
//  2. YAML config file (~/.config/maills/config.yaml)
//  3. MAILLS_-prefixed environment variables
//  4. LSP initializationOptions sent by the client
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSources indicates that neither a contact list nor a vCard directory
// was configured. The server cannot start without at least one.
var ErrNoSources = errors.New("no contact source configured: set contacts.list_path or contacts.vcard_dir")

// Config is the root configuration.
type Config struct {
	Contacts ContactsConfig `koanf:"contacts"`
	Features FeaturesConfig `koanf:"features"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ContactsConfig locates the contact sources. Source order is fixed: the
// contact list, when configured, is consulted before the vCard book.
type ContactsConfig struct {
	// ListPath is the flat contact list file. Optional.
	ListPath string `koanf:"list_path"`

	// ListKnownForDiagnostics controls whether list addresses count as
	// "known" when scanning documents for unknown addresses. Deployments
	// that use the list purely for completion set this false.
	ListKnownForDiagnostics bool `koanf:"list_known_for_diagnostics"`

	// VCardDir is the directory of vCard files. Optional, but at least one
	// of ListPath and VCardDir must be set.
	VCardDir string `koanf:"vcard_dir"`
}

// FeaturesConfig toggles individual protocol features.
type FeaturesConfig struct {
	Hover          bool `koanf:"hover"`
	Completion     bool `koanf:"completion"`
	CodeActions    bool `koanf:"code_actions"`
	GotoDefinition bool `koanf:"goto_definition"`
}

// LoggingConfig configures the zap logger. Logs always go to stderr since
// stdout carries the protocol.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is console or json.
	Format string `koanf:"format"`
}

// defaultConfig returns the pre-load defaults. Feature toggles and the
// diagnostics participation flag default to on; layered loads can only turn
// them off explicitly.
func defaultConfig() Config {
	return Config{
		Contacts: ContactsConfig{ListKnownForDiagnostics: true},
		Features: FeaturesConfig{
			Hover:          true,
			Completion:     true,
			CodeActions:    true,
			GotoDefinition: true,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Validate checks the fully layered configuration. Failures here are fatal
// at startup; the server never runs partially configured.
func (c *Config) Validate() error {
	if c.Contacts.ListPath == "" && c.Contacts.VCardDir == "" {
		return ErrNoSources
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	return nil
}

// Normalize expands home-directory shorthand in source paths.
func (c *Config) Normalize() error {
	var err error
	if c.Contacts.ListPath, err = expandHome(c.Contacts.ListPath); err != nil {
		return err
	}
	if c.Contacts.VCardDir, err = expandHome(c.Contacts.VCardDir); err != nil {
		return err
	}
	return nil
}

// expandHome resolves a leading ~/ against the invoking user's home.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
