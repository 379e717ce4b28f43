// Package config provides configuration loading for almanac.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Period string         `yaml:"period"` // "day", "week", "month", or "all"; default window when no CLI arg
	Cals   []SourceConfig `yaml:"cals"`
}

// SourceConnectionConfig contains the connection-specific fields for a calendar source.
// These fields describe how to read or connect to the calendar.
// They can be specified inline in the config file, or fetched from a command via config_cmd.
//
// Each sensitive field (url, username, password) has a corresponding _cmd variant
// that executes a shell command to retrieve the value at runtime.
// If both a field and its _cmd variant are set, the direct value takes precedence.
type SourceConnectionConfig struct {
	Type        string   `yaml:"type"` // "file", "https", or "caldav"
	Path        string   `yaml:"path,omitempty"`
	PathCmd     string   `yaml:"path_cmd,omitempty"`
	URL         string   `yaml:"url,omitempty"`
	URLCmd      string   `yaml:"url_cmd,omitempty"`
	Username    string   `yaml:"username,omitempty"`
	UsernameCmd string   `yaml:"username_cmd,omitempty"`
	Password    string   `yaml:"password,omitempty"`
	PasswordCmd string   `yaml:"password_cmd,omitempty"`
	Calendars   []string `yaml:"calendars,omitempty"` // For CalDAV: which calendars to read
}

// isEmpty returns true if no connection fields are set.
func (s *SourceConnectionConfig) isEmpty() bool {
	return s.Type == "" &&
		s.Path == "" && s.PathCmd == "" &&
		s.URL == "" && s.URLCmd == "" &&
		s.Username == "" && s.UsernameCmd == "" &&
		s.Password == "" && s.PasswordCmd == "" &&
		len(s.Calendars) == 0
}

// SourceConfig configures one calendar entry under cals.
// Connection details can be specified inline or fetched from an external command via config_cmd.
// If config_cmd is set, inline connection fields (type, path, url, username, password, calendars, ...)
// must not be set — the command output provides them.
type SourceConfig struct {
	ConfigCmd string       `yaml:"config_cmd,omitempty"` // Command that outputs connection config as YAML/JSON
	Filters   FilterConfig `yaml:"filters,omitempty"`    // Per-source filters (include/exclude)

	SourceConnectionConfig `yaml:",inline"` // Inline connection fields (mutually exclusive with config_cmd)
}

// FilterConfig configures event filtering.
type FilterConfig struct {
	Mode  string       `yaml:"mode"` // "or" or "and"
	Rules []FilterRule `yaml:"rules"`
}

// FilterRule defines a single filter rule.
// Use exactly one of: Contains, Exact, Prefix, Suffix, or Regex.
type FilterRule struct {
	Field           string `yaml:"field"`              // "summary", "location", "description"
	Contains        string `yaml:"contains,omitempty"` // Substring match
	Exact           string `yaml:"exact,omitempty"`    // Exact string match
	Prefix          string `yaml:"prefix,omitempty"`   // Starts with
	Suffix          string `yaml:"suffix,omitempty"`   // Ends with
	Regex           string `yaml:"regex,omitempty"`    // Regular expression
	CaseInsensitive bool   `yaml:"case_insensitive"`
	Exclude         bool   `yaml:"exclude,omitempty"` // If true, exclude matching events instead of including
}

// Load reads configuration from the default location
// ($XDG_CONFIG_HOME/almanac/config.yaml, falling back to os.UserConfigDir()).
func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("get config dir: %w", err)
	}

	path := filepath.Join(configDir, "almanac", "config.yaml")
	return LoadFrom(path)
}

// LoadFrom reads configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults sets default values for unspecified config options.
func (c *Config) applyDefaults() {
	if c.Period == "" {
		c.Period = "week"
	}
	for i := range c.Cals {
		if c.Cals[i].Filters.Mode == "" {
			c.Cals[i].Filters.Mode = "or"
		}
	}
}

// runCmd executes a shell command and returns its trimmed stdout.
func runCmd(command string) (string, error) {
	cmd := exec.Command("sh", "-c", command)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetPath returns the file path for a source, executing path_cmd if needed.
// If both path and path_cmd are set, the direct value takes precedence.
func (s *SourceConnectionConfig) GetPath() (string, error) {
	if s.Path != "" {
		return expandPath(s.Path), nil
	}
	if s.PathCmd == "" {
		return "", nil
	}
	v, err := runCmd(s.PathCmd)
	if err != nil {
		return "", fmt.Errorf("execute path_cmd: %w", err)
	}
	return expandPath(v), nil
}

// GetURL returns the URL for a source, executing url_cmd if needed.
// If both url and url_cmd are set, the direct value takes precedence.
func (s *SourceConnectionConfig) GetURL() (string, error) {
	if s.URL != "" {
		return s.URL, nil
	}
	if s.URLCmd == "" {
		return "", nil
	}
	v, err := runCmd(s.URLCmd)
	if err != nil {
		return "", fmt.Errorf("execute url_cmd: %w", err)
	}
	return v, nil
}

// GetUsername returns the username for a source, executing username_cmd if needed.
// If both username and username_cmd are set, the direct value takes precedence.
func (s *SourceConnectionConfig) GetUsername() (string, error) {
	if s.Username != "" {
		return s.Username, nil
	}
	if s.UsernameCmd == "" {
		return "", nil
	}
	v, err := runCmd(s.UsernameCmd)
	if err != nil {
		return "", fmt.Errorf("execute username_cmd: %w", err)
	}
	return v, nil
}

// GetPassword returns the password for a source, executing password_cmd if needed.
// If both password and password_cmd are set, the direct value takes precedence.
func (s *SourceConnectionConfig) GetPassword() (string, error) {
	if s.Password != "" {
		return s.Password, nil
	}
	if s.PasswordCmd == "" {
		return "", nil
	}
	v, err := runCmd(s.PasswordCmd)
	if err != nil {
		return "", fmt.Errorf("execute password_cmd: %w", err)
	}
	return v, nil
}

// Validate checks that a SourceConfig is well-formed.
// If config_cmd is set, inline connection fields must not be set.
// If config_cmd is not set, type is required.
func (s *SourceConfig) Validate() error {
	if s.ConfigCmd != "" {
		if !s.SourceConnectionConfig.isEmpty() {
			return fmt.Errorf("cal entry: config_cmd and inline connection fields (type, path, url, username, password, calendars, ...) are mutually exclusive")
		}
		return nil
	}

	if s.Type == "" {
		return fmt.Errorf("cal entry: type is required when config_cmd is not set")
	}
	switch s.Type {
	case "file", "https", "caldav":
	default:
		return fmt.Errorf("cal entry: unknown type %q, want file, https, or caldav", s.Type)
	}

	return nil
}

// ResolvedSource contains the fully resolved configuration for a calendar entry,
// with connection details either from inline fields or from config_cmd output.
type ResolvedSource struct {
	Filters FilterConfig
	SourceConnectionConfig
}

// Resolve returns the fully resolved source configuration.
// If config_cmd is set, it executes the command and unmarshals the output as YAML
// to obtain connection details. Otherwise, the inline fields are used directly.
func (s *SourceConfig) Resolve() (*ResolvedSource, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	resolved := &ResolvedSource{
		Filters: s.Filters,
	}

	if s.ConfigCmd == "" {
		resolved.SourceConnectionConfig = s.SourceConnectionConfig
		return resolved, nil
	}

	cmd := exec.Command("sh", "-c", s.ConfigCmd)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("execute config_cmd: %w", err)
	}

	var conn SourceConnectionConfig
	if err := yaml.Unmarshal(out, &conn); err != nil {
		return nil, fmt.Errorf("parse config_cmd output: %w", err)
	}

	if conn.Type == "" {
		return nil, fmt.Errorf("config_cmd output must include 'type'")
	}

	resolved.SourceConnectionConfig = conn
	return resolved, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
