package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	SyncRoot string `toml:"sync_root"`
}

// Accounts contains configuration for the credential store and account selection.
type Accounts struct {
	StorePath string `toml:"store_path"`
	// Selection is "automatic" (use the browsed drive's account) or "manual"
	// (always use PlaybackDrive).
	Selection      string `toml:"selection"`
	PlaybackDrive  string `toml:"playback_drive"`
	RefreshTimeout int    `toml:"refresh_timeout"`
	LockTimeout    int    `toml:"lock_timeout"`
}

// Naming contains the decoration tags rendered around synced filenames.
type Naming struct {
	Prefix []string `toml:"prefix"`
	Suffix []string `toml:"suffix"`
}

// TitleCache contains configuration for the title correction cache.
type TitleCache struct {
	Path string `toml:"path"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Language          string  `toml:"language"`
	RequestTimeout    int     `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Drive contains configuration for the Google Drive API client.
type Drive struct {
	TokenURL       string   `toml:"token_url"`
	APIEndpoint    string   `toml:"api_endpoint"`
	Scopes         []string `toml:"scopes"`
	RequestTimeout int      `toml:"request_timeout"`
}

// Playback contains configuration for the local playback/sync helper server.
type Playback struct {
	ServerPort         int      `toml:"server_port"`
	ResolutionPriority []string `toml:"resolution_priority"`
	ResolutionPrompt   bool     `toml:"resolution_prompt"`
	RequestTimeout     int      `toml:"request_timeout"`
	// CryptoPassword and CryptoSalt decrypt encrypted files on the helper
	// server. Encrypted playback is refused until both are set.
	CryptoPassword string `toml:"crypto_password"`
	CryptoSalt     string `toml:"crypto_salt"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for gdrive.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and sync root directories
//   - Accounts: credential store location and playback account selection
//   - Naming: prefix/suffix decoration tags for synced files
//   - TitleCache: title correction cache database
//   - TMDB: title identification via The Movie Database
//   - Drive: Google Drive API token endpoint, scopes, and timeouts
//   - Playback: local helper server port and stream resolution priority
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Accounts   Accounts   `toml:"accounts"`
	Naming     Naming     `toml:"naming"`
	TitleCache TitleCache `toml:"title_cache"`
	TMDB       TMDB       `toml:"tmdb"`
	Drive      Drive      `toml:"drive"`
	Playback   Playback   `toml:"playback"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/gdrive/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gdrive.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ManualAccountSelection reports whether playback always uses the configured drive.
func (c *Config) ManualAccountSelection() bool {
	return c.Accounts.Selection == SelectionManual && c.Accounts.PlaybackDrive != ""
}

// RefreshTimeout returns the bound applied to a single token refresh.
func (c *Config) RefreshTimeout() time.Duration {
	return time.Duration(c.Accounts.RefreshTimeout) * time.Second
}

// LockTimeout returns how long store mutations wait for the cross-process lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Accounts.LockTimeout) * time.Second
}

// PlaybackBaseURL returns the loopback URL of the local helper server.
func (c *Config) PlaybackBaseURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Playback.ServerPort)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
