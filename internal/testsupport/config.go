package testsupport

import (
	"path/filepath"
	"testing"

	"gdrive/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SyncRoot = filepath.Join(base, "sync")
	cfgVal.Accounts.StorePath = filepath.Join(base, "data", "accounts.json")
	cfgVal.TitleCache.Path = filepath.Join(base, "data", "titles.db")
	cfgVal.Accounts.RefreshTimeout = 2
	cfgVal.Accounts.LockTimeout = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithTMDBBaseURL points title identification at a test server.
func WithTMDBBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = url
		b.cfg.TMDB.RequestsPerSecond = 1000
	}
}

// WithManualSelection pins playback to driveID.
func WithManualSelection(driveID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Accounts.Selection = config.SelectionManual
		b.cfg.Accounts.PlaybackDrive = driveID
	}
}

// WithNaming sets the decoration tags rendered around basenames.
func WithNaming(prefix, suffix []string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Naming.Prefix = prefix
		b.cfg.Naming.Suffix = suffix
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WithCrypto sets the encrypted playback secrets.
func WithCrypto(password, salt string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Playback.CryptoPassword = password
		b.cfg.Playback.CryptoSalt = salt
	}
}

// WithPlayback sets the resolution priority and prompt flag.
func WithPlayback(priority []string, prompt bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Playback.ResolutionPriority = priority
		b.cfg.Playback.ResolutionPrompt = prompt
	}
}
