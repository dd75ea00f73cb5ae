package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"keyviz/internal/atomicfile"
	"keyviz/internal/chord"
	"keyviz/internal/coords"
	"keyviz/internal/store"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB

	appDirName     = "keyviz"
	configFileName = "config.yaml"
)

// Log levels accepted in log_level.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir
var windowsEnvTokenPattern = regexp.MustCompile(`%[A-Za-z_][A-Za-z0-9_]*%`)
var posixEnvTokenPattern = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}|\$[A-Za-z_][A-Za-z0-9_]*`)
var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// Config is keyviz runtime configuration.
type Config struct {
	// StorePath locates the key event store. Empty means store.json next to
	// the config file.
	StorePath string `yaml:"store_path,omitempty" json:"store_path,omitempty"`
	// MainMonitor names the monitor calibrated at startup. Empty selects the
	// primary monitor.
	MainMonitor      string `yaml:"main_monitor,omitempty" json:"main_monitor,omitempty"`
	CoordinatePolicy string `yaml:"coordinate_policy" json:"coordinate_policy"`
	// FallbackToggleShortcut is used when the store has no readable shortcut.
	FallbackToggleShortcut string `yaml:"fallback_toggle_shortcut" json:"fallback_toggle_shortcut"`
	StartListening         bool   `yaml:"start_listening" json:"start_listening"`
	WatchStore             bool   `yaml:"watch_store" json:"watch_store"`
	LogLevel               string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns default values.
func DefaultConfig() Config {
	return Config{
		CoordinatePolicy:       string(coords.PolicyAuto),
		FallbackToggleShortcut: chord.Default.String(),
		StartListening:         true,
		WatchStore:             true,
		LogLevel:               LogLevelInfo,
	}
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
// The temp-dir fallback is not a stable persistence location and may vary
// between sessions depending on environment configuration.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			// Keep config path resolvable even in restricted environments.
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// Load reads config file. If file does not exist, defaults are returned.
// A parse error returns defaults together with the error; invalid values are
// normalized with a warning.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := atomicfile.ReadLimited(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	// Decoding over the defaults keeps omitted options at their default, so a
	// missing start_listening stays true.
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	applyDefaultsAndValidate(&cfg)
	return cfg, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save validates and writes config atomically.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	applyDefaultsAndValidate(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicfile.Write(normalizedPath, raw, 0o600); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// ResolveStorePath returns the key event store location for a config loaded
// from configPath.
func (c Config) ResolveStorePath(configPath string) string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return store.DefaultPath(filepath.Dir(configPath))
}

// Policy returns the parsed coordinate policy. Load has already normalized
// the value, so an unknown string falls back to auto.
func (c Config) Policy() coords.Policy {
	policy, err := coords.ParsePolicy(c.CoordinatePolicy)
	if err != nil {
		return coords.PolicyAuto
	}
	return policy
}

// FallbackShortcut returns the parsed fallback chord.
func (c Config) FallbackShortcut() chord.Chord {
	parsed, err := chord.Parse(c.FallbackToggleShortcut)
	if err != nil {
		return chord.Default.Clone()
	}
	return parsed
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory when that directory is resolvable.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}

	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// It also rejects Windows cross-drive escapes because filepath.Rel returns
// an absolute path when roots differ.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and normalizes cfg in-place.
// MUTATES: cfg is directly modified.
// Used by both Load and Save so the file and memory agree.
func applyDefaultsAndValidate(cfg *Config) {
	defaults := DefaultConfig()

	cfg.MainMonitor = strings.TrimSpace(cfg.MainMonitor)
	validateStorePath(cfg)

	policy, err := coords.ParsePolicy(cfg.CoordinatePolicy)
	if err != nil {
		slog.Warn("[WARN-CONFIG] unknown coordinate_policy, using auto", "configured", cfg.CoordinatePolicy)
		policy = coords.PolicyAuto
	}
	cfg.CoordinatePolicy = string(policy)

	if strings.TrimSpace(cfg.FallbackToggleShortcut) == "" {
		cfg.FallbackToggleShortcut = defaults.FallbackToggleShortcut
	} else if parsed, err := chord.Parse(cfg.FallbackToggleShortcut); err != nil {
		slog.Warn("[WARN-CONFIG] invalid fallback_toggle_shortcut, using default",
			"configured", cfg.FallbackToggleShortcut, "error", err)
		cfg.FallbackToggleShortcut = defaults.FallbackToggleShortcut
	} else {
		cfg.FallbackToggleShortcut = parsed.String()
	}

	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		cfg.LogLevel = level
	case "":
		cfg.LogLevel = defaults.LogLevel
	default:
		slog.Warn("[WARN-CONFIG] unknown log_level, using info", "configured", cfg.LogLevel)
		cfg.LogLevel = defaults.LogLevel
	}
}

// validateStorePath normalizes StorePath in place.
// Expands ~ and environment variables, applies filepath.Clean, and clears
// non-absolute paths with a warning log (non-fatal).
func validateStorePath(cfg *Config) {
	dir := strings.TrimSpace(cfg.StorePath)
	if dir == "" {
		cfg.StorePath = ""
		return
	}
	if strings.HasPrefix(dir, "~") {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] store_path: failed to expand ~, ignoring",
				"path", dir, "error", err)
			cfg.StorePath = ""
			return
		}
		dir = filepath.Join(home, dir[1:])
	}
	dir = expandEnvTokens(dir)
	dir = filepath.Clean(dir)
	if !filepath.IsAbs(dir) {
		slog.Warn("[WARN-CONFIG] store_path is not an absolute path, ignoring", "path", dir)
		cfg.StorePath = ""
		return
	}
	cfg.StorePath = dir
}

func expandEnvTokens(path string) string {
	if path == "" {
		return ""
	}
	// Expand Windows-style %VAR% tokens on all platforms for portability.
	expanded := windowsEnvTokenPattern.ReplaceAllStringFunc(path, func(token string) string {
		key := token[1 : len(token)-1]
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return token
	})
	// '$' is a valid character in Windows file paths.
	if runtime.GOOS == "windows" {
		return expanded
	}
	expanded = posixEnvTokenPattern.ReplaceAllStringFunc(expanded, func(token string) string {
		key := strings.TrimPrefix(token, "$")
		key = strings.TrimPrefix(key, "{")
		key = strings.TrimSuffix(key, "}")
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return token
	})
	return expanded
}
