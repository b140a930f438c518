package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MAILLS_"

// Load builds the configuration from defaults, the YAML config file, and the
// environment. configPath overrides the default file location; a missing
// file is not an error, only an unparsable one is.
//
// Environment variables map section-first:
//
//	MAILLS_CONTACTS_VCARD_DIR  -> contacts.vcard_dir
//	MAILLS_FEATURES_HOVER      -> features.hover
//	MAILLS_LOGGING_LEVEL       -> logging.level
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "maills", "config.yaml")
	}

	if content, err := os.ReadFile(configPath); err == nil {
		if err := k.Load(rawbytes.Provider(content), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// MAILLS_CONTACTS_LIST_PATH -> contacts.list_path: split on the
		// first underscore after the prefix; the section never contains one.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		section, field, found := strings.Cut(lower, "_")
		if !found {
			return lower
		}
		return section + "." + field
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// initOptions is the flat initializationOptions payload editors send.
// Pointer fields distinguish "absent" from explicit false/empty.
type initOptions struct {
	ContactListPath      *string `koanf:"contact_list_path"`
	ContactListKnown     *bool   `koanf:"contact_list_known_for_diagnostics"`
	VCardDir             *string `koanf:"vcard_dir"`
	EnableHover          *bool   `koanf:"enable_hover"`
	EnableCompletion     *bool   `koanf:"enable_completion"`
	EnableCodeActions    *bool   `koanf:"enable_code_actions"`
	EnableGotoDefinition *bool   `koanf:"enable_goto_definition"`
}

// ApplyInitializationOptions overlays the client's initializationOptions
// JSON onto the configuration. Unknown fields are ignored; a payload that is
// not a JSON object is a configuration error.
func (c *Config) ApplyInitializationOptions(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), kjson.Parser()); err != nil {
		return fmt.Errorf("parse initialization options: %w", err)
	}
	var opts initOptions
	if err := k.Unmarshal("", &opts); err != nil {
		return fmt.Errorf("unmarshal initialization options: %w", err)
	}

	if opts.ContactListPath != nil {
		c.Contacts.ListPath = *opts.ContactListPath
	}
	if opts.ContactListKnown != nil {
		c.Contacts.ListKnownForDiagnostics = *opts.ContactListKnown
	}
	if opts.VCardDir != nil {
		c.Contacts.VCardDir = *opts.VCardDir
	}
	if opts.EnableHover != nil {
		c.Features.Hover = *opts.EnableHover
	}
	if opts.EnableCompletion != nil {
		c.Features.Completion = *opts.EnableCompletion
	}
	if opts.EnableCodeActions != nil {
		c.Features.CodeActions = *opts.EnableCodeActions
	}
	if opts.EnableGotoDefinition != nil {
		c.Features.GotoDefinition = *opts.EnableGotoDefinition
	}
	return nil
}
