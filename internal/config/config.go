// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/logging"
	"github.com/jeranaias/trifactor-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete trifactor configuration.
type Config struct {
	Version string `toml:"version"`

	Service ServiceConfig `toml:"service"`
	Camera  CameraConfig  `toml:"camera"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
	Journal JournalConfig `toml:"journal"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServiceConfig points at the remote verification service.
type ServiceConfig struct {
	// URL is the service root (default: http://127.0.0.1:5000)
	URL string `toml:"url"`
	// TimeoutSecs bounds the PIN and face requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// VoiceTimeoutSecs bounds the voice request; the service records audio
	// while it is open.
	VoiceTimeoutSecs int `toml:"voice_timeout_secs"`

	PINPath   string `toml:"pin_path"`
	FacePath  string `toml:"face_path"`
	VoicePath string `toml:"voice_path"`
}

// CameraConfig selects and tunes the camera backend.
type CameraConfig struct {
	// Backend is "command", "file" or "none".
	Backend string `toml:"backend"`
	// Device replaces {device} in Command.
	Device string `toml:"device"`
	// Command writes an MJPEG stream to stdout.
	Command []string `toml:"command"`
	// Image is the still used by the file backend.
	Image string `toml:"image"`

	JPEGQuality     int `toml:"jpeg_quality"`
	MinPayloadBytes int `toml:"min_payload_bytes"`
	// OpenTimeoutSecs bounds the wait for the camera's first frame.
	OpenTimeoutSecs int `toml:"open_timeout_secs"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// BannerSecs is how long an error stays on screen.
	BannerSecs int `toml:"banner_secs"`
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme"`
	// PreviewWidth and PreviewHeight size the camera preview in cells.
	PreviewWidth  int `toml:"preview_width"`
	PreviewHeight int `toml:"preview_height"`
}

// LogConfig controls the log file. The TUI owns the terminal, so logs never
// go to stdout.
type LogConfig struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

// JournalConfig controls the local attempt journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".trifactor"
	}

	return &Config{
		Version: "1",

		Service: ServiceConfig{
			URL:              "http://127.0.0.1:5000",
			TimeoutSecs:      30,
			VoiceTimeoutSecs: 120,
			PINPath:          "/validate-pin",
			FacePath:         "/face-auth",
			VoicePath:        "/voice-auth",
		},

		Camera: CameraConfig{
			Backend:         capture.BackendCommand,
			Device:          capture.DefaultDevice,
			Command:         append([]string(nil), capture.DefaultCommand...),
			JPEGQuality:     capture.DefaultJPEGQuality,
			MinPayloadBytes: capture.DefaultMinPayloadBytes,
			OpenTimeoutSecs: int(capture.DefaultOpenTimeout / time.Second),
		},

		UI: UIConfig{
			BannerSecs:    5,
			Theme:         "dark",
			PreviewWidth:  48,
			PreviewHeight: 18,
		},

		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dir, "trifactor.log"),
		},

		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "journal.db"),
		},
	}
}

// ServiceTimeout returns the PIN and face request timeout.
func (c *Config) ServiceTimeout() time.Duration {
	return time.Duration(c.Service.TimeoutSecs) * time.Second
}

// VoiceTimeout returns the voice request timeout.
func (c *Config) VoiceTimeout() time.Duration {
	return time.Duration(c.Service.VoiceTimeoutSecs) * time.Second
}

// CameraOpenTimeout returns how long acquiring the camera may take.
func (c *Config) CameraOpenTimeout() time.Duration {
	return time.Duration(c.Camera.OpenTimeoutSecs) * time.Second
}

// BannerDuration returns how long errors stay visible.
func (c *Config) BannerDuration() time.Duration {
	return time.Duration(c.UI.BannerSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the trifactor configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".trifactor"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens the config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.trifactor/config.toml if it exists, falls back to defaults
// otherwise, applies environment overrides and validates.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full
// validation. The file must exist.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys absent from the file keep the
// values already in cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults fills in any zero values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Service
	if cfg.Service.URL == "" {
		cfg.Service.URL = defaults.Service.URL
	}
	if cfg.Service.TimeoutSecs == 0 {
		cfg.Service.TimeoutSecs = defaults.Service.TimeoutSecs
	}
	if cfg.Service.VoiceTimeoutSecs == 0 {
		cfg.Service.VoiceTimeoutSecs = defaults.Service.VoiceTimeoutSecs
	}
	if cfg.Service.PINPath == "" {
		cfg.Service.PINPath = defaults.Service.PINPath
	}
	if cfg.Service.FacePath == "" {
		cfg.Service.FacePath = defaults.Service.FacePath
	}
	if cfg.Service.VoicePath == "" {
		cfg.Service.VoicePath = defaults.Service.VoicePath
	}

	// Camera
	if cfg.Camera.Backend == "" {
		cfg.Camera.Backend = defaults.Camera.Backend
	}
	if cfg.Camera.Device == "" {
		cfg.Camera.Device = defaults.Camera.Device
	}
	if len(cfg.Camera.Command) == 0 {
		cfg.Camera.Command = defaults.Camera.Command
	}
	if cfg.Camera.JPEGQuality == 0 {
		cfg.Camera.JPEGQuality = defaults.Camera.JPEGQuality
	}
	if cfg.Camera.OpenTimeoutSecs == 0 {
		cfg.Camera.OpenTimeoutSecs = defaults.Camera.OpenTimeoutSecs
	}

	// UI
	if cfg.UI.BannerSecs == 0 {
		cfg.UI.BannerSecs = defaults.UI.BannerSecs
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.PreviewWidth == 0 {
		cfg.UI.PreviewWidth = defaults.UI.PreviewWidth
	}
	if cfg.UI.PreviewHeight == 0 {
		cfg.UI.PreviewHeight = defaults.UI.PreviewHeight
	}

	// Log / journal
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = defaults.Log.Path
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = defaults.Journal.Path
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to ~/.trifactor/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# trifactor configuration file\n")
	buf.WriteString("# Generated by trifactor - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidateErrors listing all
// problems, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// Service
	// ==========================================================================

	if u, err := url.Parse(c.Service.URL); err != nil {
		add("service.url", "invalid URL: %v", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("service.url", "scheme must be http or https, got %q", u.Scheme)
	} else if u.Host == "" {
		add("service.url", "missing host")
	}
	if c.Service.TimeoutSecs < 1 || c.Service.TimeoutSecs > 600 {
		add("service.timeout_secs", "must be between 1 and 600, got %d", c.Service.TimeoutSecs)
	}
	if c.Service.VoiceTimeoutSecs < 1 || c.Service.VoiceTimeoutSecs > 1800 {
		add("service.voice_timeout_secs", "must be between 1 and 1800, got %d", c.Service.VoiceTimeoutSecs)
	}
	for field, p := range map[string]string{
		"service.pin_path":   c.Service.PINPath,
		"service.face_path":  c.Service.FacePath,
		"service.voice_path": c.Service.VoicePath,
	} {
		if !strings.HasPrefix(p, "/") {
			add(field, "must start with '/', got %q", p)
		}
	}

	// ==========================================================================
	// Camera
	// ==========================================================================

	switch strings.ToLower(c.Camera.Backend) {
	case capture.BackendCommand:
		if len(c.Camera.Command) == 0 {
			add("camera.command", "required for the command backend")
		}
	case capture.BackendFile:
		if c.Camera.Image == "" {
			add("camera.image", "required for the file backend")
		}
	case capture.BackendNone:
	default:
		add("camera.backend", "invalid backend '%s', must be one of: command, file, none", c.Camera.Backend)
	}
	if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
		add("camera.jpeg_quality", "must be between 1 and 100, got %d", c.Camera.JPEGQuality)
	}
	if c.Camera.MinPayloadBytes < 0 {
		add("camera.min_payload_bytes", "cannot be negative")
	}
	if c.Camera.OpenTimeoutSecs < 1 || c.Camera.OpenTimeoutSecs > 120 {
		add("camera.open_timeout_secs", "must be between 1 and 120, got %d", c.Camera.OpenTimeoutSecs)
	}

	// ==========================================================================
	// UI
	// ==========================================================================

	if c.UI.BannerSecs < 1 || c.UI.BannerSecs > 60 {
		add("ui.banner_secs", "must be between 1 and 60, got %d", c.UI.BannerSecs)
	}
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}
	if c.UI.PreviewWidth < 8 || c.UI.PreviewWidth > 200 {
		add("ui.preview_width", "must be between 8 and 200, got %d", c.UI.PreviewWidth)
	}
	if c.UI.PreviewHeight < 4 || c.UI.PreviewHeight > 100 {
		add("ui.preview_height", "must be between 4 and 100, got %d", c.UI.PreviewHeight)
	}

	// ==========================================================================
	// Log / Journal / Metrics
	// ==========================================================================

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		add("journal.path", "required when the journal is enabled")
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			add("metrics.addr", "invalid address: %v", err)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - TRIFACTOR_SERVICE_URL: overrides service.url
//   - TRIFACTOR_TIMEOUT: overrides service.timeout_secs
//   - TRIFACTOR_CAMERA: overrides camera.backend
//   - TRIFACTOR_CAMERA_DEVICE: overrides camera.device
//   - TRIFACTOR_LOG_LEVEL: overrides log.level
//   - TRIFACTOR_METRICS_ADDR: overrides metrics.addr
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TRIFACTOR_SERVICE_URL"); v != "" {
		c.Service.URL = v
	}
	if v := os.Getenv("TRIFACTOR_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Service.TimeoutSecs = secs
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring TRIFACTOR_TIMEOUT=%q: not an integer\n", v)
		}
	}
	if v := os.Getenv("TRIFACTOR_CAMERA"); v != "" {
		c.Camera.Backend = v
	}
	if v := os.Getenv("TRIFACTOR_CAMERA_DEVICE"); v != "" {
		c.Camera.Device = v
	}
	if v := os.Getenv("TRIFACTOR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TRIFACTOR_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "service.url").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				field.Set(reflect.ValueOf(strings.Fields(strVal)))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"service.url",
		"service.timeout_secs",
		"service.voice_timeout_secs",
		"service.pin_path",
		"service.face_path",
		"service.voice_path",
		"camera.backend",
		"camera.device",
		"camera.command",
		"camera.image",
		"camera.jpeg_quality",
		"camera.min_payload_bytes",
		"camera.open_timeout_secs",
		"ui.banner_secs",
		"ui.theme",
		"ui.preview_width",
		"ui.preview_height",
		"log.level",
		"log.path",
		"journal.enabled",
		"journal.path",
		"metrics.addr",
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Camera.Command != nil {
		clone.Camera.Command = append([]string(nil), c.Camera.Command...)
	}
	return &clone
}

// String renders the config as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
