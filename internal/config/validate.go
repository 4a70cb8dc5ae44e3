package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAccounts(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	return nil
}

// CryptoConfigured reports whether encrypted files can be played.
func (c *Config) CryptoConfigured() bool {
	return c.Playback.CryptoPassword != "" && c.Playback.CryptoSalt != ""
}

// ValidateTMDB reports whether title identification can run. It is checked
// lazily by commands that resolve titles so account management works without
// a TMDB key.
func (c *Config) ValidateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/gdrive/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'gdrive config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateAccounts() error {
	switch c.Accounts.Selection {
	case SelectionAutomatic, SelectionManual:
	default:
		return fmt.Errorf("accounts.selection must be %q or %q, got %q", SelectionAutomatic, SelectionManual, c.Accounts.Selection)
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if c.Playback.ServerPort < 1 || c.Playback.ServerPort > 65535 {
		return errors.New("playback.server_port must be between 1 and 65535")
	}
	return nil
}
