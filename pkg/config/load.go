package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	TokenEnv  = "DEPLOYER_TOKEN"
	BranchEnv = "DEPLOYER_BRANCH"
)

// DefaultPath is the configuration file used when none is specified.
const DefaultPath = "/etc/host-deployer/deployer.toml"

type format int

const (
	formatTOML format = iota
	formatYAML
	formatJSON
)

func formatForPath(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".json", ".jsonc":
		return formatJSON, nil
	}
	return 0, fmt.Errorf("unsupported configuration file %s: must be .toml, .yaml, .yml, .json or .jsonc", path)
}

// Load reads and validates the configuration from path.
//
// Environment variables take precedence over file values:
//   - DEPLOYER_TOKEN overrides token and token_file
//   - DEPLOYER_BRANCH overrides branch
func Load(path string) (Config, error) {
	f, err := formatForPath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := parse(f, data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func parse(f format, data []byte) (Config, error) {
	var cfg Config
	switch f {
	case formatTOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parsing TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	case formatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing YAML: %w", err)
		}
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing JSON: %w", err)
		}
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(TokenEnv); v != "" {
		cfg.Token = v
		cfg.TokenFile = ""
	}
	if v := os.Getenv(BranchEnv); v != "" {
		cfg.Branch = v
	}
}

// Save writes cfg to path in the format chosen by its extension, creating
// parent directories as needed.
//
// The file is created with 0600 permissions as it contains the token.
func Save(path string, cfg Config) error {
	f, err := formatForPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch f {
	case formatTOML:
		err = toml.NewEncoder(&buf).Encode(cfg)
	case formatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		err = enc.Encode(cfg)
		if err == nil {
			err = enc.Close()
		}
	case formatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(cfg)
	}
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}
