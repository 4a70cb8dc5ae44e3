package accounts

import (
	"path/filepath"
	"strings"
	"time"
)

// Type distinguishes how an account authenticates.
type Type string

const (
	// TypeService is a Google service account authenticated with a private key.
	TypeService Type = "service"
	// TypeOAuth is an interactively registered account holding a refresh token.
	TypeOAuth Type = "oauth"
)

// Account is one stored credential usable against a Drive.
type Account struct {
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Key          string    `json:"key,omitempty"`
	Type         Type      `json:"type,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Alias        string    `json:"alias,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Expired reports whether the credential must be refreshed before use.
func (a Account) Expired(now time.Time) bool {
	return !now.Before(a.Expiry)
}

// DisplayName returns the alias when set, otherwise the account name.
func (a Account) DisplayName() string {
	if alias := strings.TrimSpace(a.Alias); alias != "" {
		return alias
	}
	return a.Name
}

// Drive groups the accounts that can reach one cloud storage root.
type Drive struct {
	ID        string    `json:"id"`
	Alias     string    `json:"alias,omitempty"`
	LocalPath string    `json:"local_path,omitempty"`
	Accounts  []Account `json:"accounts"`
}

// DisplayName returns the drive alias when set, otherwise its identifier.
func (d Drive) DisplayName() string {
	if alias := strings.TrimSpace(d.Alias); alias != "" {
		return alias
	}
	return d.ID
}

// IsLocalPath reports whether p names a folder strictly inside the sync
// root: relative, not the root itself, and never climbing out with "..".
func IsLocalPath(p string) bool {
	return filepath.IsLocal(p) && filepath.Clean(p) != "."
}

// Browsable reports whether at least one account can reach the drive.
func (d Drive) Browsable() bool {
	return len(d.Accounts) > 0
}

func (d Drive) accountIndex(name string) int {
	for i, account := range d.Accounts {
		if account.Name == name {
			return i
		}
	}
	return -1
}

// DriveAccount pairs an account with the drive it was resolved for.
type DriveAccount struct {
	DriveID string
	Account Account
}
