package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAccounts(); err != nil {
		return err
	}
	c.normalizeNaming()
	if err := c.normalizeTitleCache(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeDrive()
	c.normalizePlayback()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SyncRoot, err = expandPath(strings.TrimSpace(c.Paths.SyncRoot)); err != nil {
		return fmt.Errorf("paths.sync_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeAccounts() error {
	var err error
	if strings.TrimSpace(c.Accounts.StorePath) == "" {
		c.Accounts.StorePath = filepath.Join(c.Paths.DataDir, defaultStoreFileName)
	}
	if c.Accounts.StorePath, err = expandPath(c.Accounts.StorePath); err != nil {
		return fmt.Errorf("accounts.store_path: %w", err)
	}
	c.Accounts.Selection = strings.ToLower(strings.TrimSpace(c.Accounts.Selection))
	if c.Accounts.Selection == "" {
		c.Accounts.Selection = SelectionAutomatic
	}
	c.Accounts.PlaybackDrive = strings.TrimSpace(c.Accounts.PlaybackDrive)
	if c.Accounts.RefreshTimeout <= 0 {
		c.Accounts.RefreshTimeout = defaultRefreshTimeout
	}
	if c.Accounts.LockTimeout <= 0 {
		c.Accounts.LockTimeout = defaultLockTimeout
	}
	return nil
}

// normalizeNaming lowercases tags and drops blanks. Unknown tags are kept;
// the formatter renders nothing for them.
func (c *Config) normalizeNaming() {
	c.Naming.Prefix = normalizeTags(c.Naming.Prefix)
	c.Naming.Suffix = normalizeTags(c.Naming.Suffix)
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func (c *Config) normalizeTitleCache() error {
	var err error
	if strings.TrimSpace(c.TitleCache.Path) == "" {
		c.TitleCache.Path = filepath.Join(c.Paths.DataDir, defaultTitleCacheFileName)
	}
	if c.TitleCache.Path, err = expandPath(c.TitleCache.Path); err != nil {
		return fmt.Errorf("title_cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.RequestTimeout <= 0 {
		c.TMDB.RequestTimeout = defaultTMDBRequestTimeout
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = defaultTMDBRequestsPerSecond
	}
}

func (c *Config) normalizeDrive() {
	c.Drive.TokenURL = strings.TrimSpace(c.Drive.TokenURL)
	if c.Drive.TokenURL == "" {
		c.Drive.TokenURL = defaultDriveTokenURL
	}
	c.Drive.APIEndpoint = strings.TrimSpace(c.Drive.APIEndpoint)
	if c.Drive.APIEndpoint == "" {
		c.Drive.APIEndpoint = defaultDriveAPIEndpoint
	}
	scopes := make([]string, 0, len(c.Drive.Scopes))
	for _, scope := range c.Drive.Scopes {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	if len(scopes) == 0 {
		scopes = []string{defaultDriveScope}
	}
	c.Drive.Scopes = scopes
	if c.Drive.RequestTimeout <= 0 {
		c.Drive.RequestTimeout = defaultDriveRequestTimeout
	}
}

func (c *Config) normalizePlayback() {
	if c.Playback.ServerPort == 0 {
		c.Playback.ServerPort = defaultServerPort
	}
	if c.Playback.RequestTimeout <= 0 {
		c.Playback.RequestTimeout = defaultPlaybackTimeout
	}
	priority := make([]string, 0, len(c.Playback.ResolutionPriority))
	for _, res := range c.Playback.ResolutionPriority {
		if res = strings.TrimSpace(res); res != "" {
			priority = append(priority, res)
		}
	}
	if len(priority) == 0 {
		priority = Default().Playback.ResolutionPriority
	}
	c.Playback.ResolutionPriority = priority
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
