package config

const (
	// SelectionAutomatic uses the account of the drive being browsed.
	SelectionAutomatic = "automatic"
	// SelectionManual pins playback to Accounts.PlaybackDrive.
	SelectionManual = "manual"
)

const (
	defaultDataDir               = "~/.local/share/gdrive"
	defaultLogDir                = "~/.local/share/gdrive/logs"
	defaultSyncRoot              = "~/gdrive"
	defaultStoreFileName         = "accounts.json"
	defaultTitleCacheFileName    = "titles.db"
	defaultRefreshTimeout        = 30
	defaultLockTimeout           = 10
	defaultTMDBLanguage          = "en-US"
	defaultTMDBBaseURL           = "https://api.themoviedb.org/3"
	defaultTMDBRequestTimeout    = 10
	defaultTMDBRequestsPerSecond = 4
	defaultDriveTokenURL         = "https://oauth2.googleapis.com/token"
	defaultDriveAPIEndpoint      = "https://www.googleapis.com/drive/v3/"
	defaultDriveScope            = "https://www.googleapis.com/auth/drive"
	defaultDriveRequestTimeout   = 30
	defaultServerPort            = 8011
	defaultPlaybackTimeout       = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			SyncRoot: defaultSyncRoot,
		},
		Accounts: Accounts{
			Selection:      SelectionAutomatic,
			RefreshTimeout: defaultRefreshTimeout,
			LockTimeout:    defaultLockTimeout,
		},
		TMDB: TMDB{
			Language:          defaultTMDBLanguage,
			BaseURL:           defaultTMDBBaseURL,
			RequestTimeout:    defaultTMDBRequestTimeout,
			RequestsPerSecond: defaultTMDBRequestsPerSecond,
		},
		Drive: Drive{
			TokenURL:       defaultDriveTokenURL,
			APIEndpoint:    defaultDriveAPIEndpoint,
			Scopes:         []string{defaultDriveScope},
			RequestTimeout: defaultDriveRequestTimeout,
		},
		Playback: Playback{
			ServerPort:         defaultServerPort,
			ResolutionPriority: []string{"Original", "1080P", "720P", "480P", "360P"},
			RequestTimeout:     defaultPlaybackTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
