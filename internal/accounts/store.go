package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"gdrive/internal/logging"
	"gdrive/internal/services"
	"gdrive/internal/textutil"
)

const defaultLockTimeout = 10 * time.Second

// Store is the persisted collection of drives and their accounts. Each
// plugin invocation runs as its own process, so reads always go to disk and
// every mutation is a locked read-modify-write with an atomic file replace.
type Store struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option customises Store construction.
type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLockTimeout bounds how long mutations wait for the cross-process lock.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithClock overrides the time source used for registration timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store persisted at path. The file is created lazily on
// the first mutation.
func NewStore(path string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "accounts", "open", "store path is empty", nil)
	}
	s := &Store{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "accounts")
	return s, nil
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Add registers account under driveID, creating the drive on first use.
func (s *Store) Add(ctx context.Context, driveID string, account Account) error {
	driveID = strings.TrimSpace(driveID)
	account.Name = strings.TrimSpace(account.Name)
	if driveID == "" {
		return services.Wrap(services.ErrValidation, "accounts", "add", "drive id is empty", nil)
	}
	if account.Name == "" {
		return services.Wrap(services.ErrValidation, "accounts", "add", "account name is empty", nil)
	}
	if account.RegisteredAt.IsZero() {
		account.RegisteredAt = s.now().UTC()
	}

	err := s.update(ctx, "add", func(doc *document) error {
		drive := doc.ensureDrive(driveID)
		if drive.accountIndex(account.Name) >= 0 {
			return services.Wrap(services.ErrDuplicateName, "accounts", "add", fmt.Sprintf("account %q already exists on drive %s", account.Name, driveID), nil)
		}
		drive.Accounts = append(drive.Accounts, account)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("account added",
		logging.String(logging.FieldDriveID, driveID),
		logging.String(logging.FieldAccount, account.Name),
		logging.String("account_type", string(account.Type)))
	return nil
}

// Accounts returns the accounts registered for driveID in registration order.
func (s *Store) Accounts(driveID string) ([]Account, error) {
	doc, err := readDocument(s.path)
	if err != nil {
		return nil, err
	}
	drive := doc.drive(driveID)
	if drive == nil {
		return []Account{}, nil
	}
	return slices.Clone(drive.Accounts), nil
}

// Default returns the representative account for quick operations: the
// first registered account of the drive.
func (s *Store) Default(driveID string) (Account, bool, error) {
	accounts, err := s.Accounts(driveID)
	if err != nil {
		return Account{}, false, err
	}
	if len(accounts) == 0 {
		return Account{}, false, nil
	}
	return accounts[0], true, nil
}

// Drive returns the stored drive metadata.
func (s *Store) Drive(driveID string) (Drive, bool, error) {
	doc, err := readDocument(s.path)
	if err != nil {
		return Drive{}, false, err
	}
	drive := doc.drive(driveID)
	if drive == nil {
		return Drive{}, false, nil
	}
	out := *drive
	out.Accounts = slices.Clone(drive.Accounts)
	return out, true, nil
}

// Drives returns every stored drive, including drives left without accounts.
func (s *Store) Drives() ([]Drive, error) {
	doc, err := readDocument(s.path)
	if err != nil {
		return nil, err
	}
	drives := make([]Drive, 0, len(doc.Drives))
	for _, drive := range doc.Drives {
		drive.Accounts = slices.Clone(drive.Accounts)
		drives = append(drives, drive)
	}
	return drives, nil
}

// Aliases returns the aliases currently assigned to drives.
func (s *Store) Aliases() ([]string, error) {
	doc, err := readDocument(s.path)
	if err != nil {
		return nil, err
	}
	aliases := make([]string, 0, len(doc.Drives))
	for _, drive := range doc.Drives {
		if drive.Alias != "" {
			aliases = append(aliases, drive.Alias)
		}
	}
	return aliases, nil
}

// Rename changes the name of the account at index within driveID.
func (s *Store) Rename(ctx context.Context, driveID string, index int, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return services.Wrap(services.ErrValidation, "accounts", "rename", "new account name is empty", nil)
	}

	var oldName string
	err := s.update(ctx, "rename", func(doc *document) error {
		drive := doc.drive(driveID)
		if drive == nil || index < 0 || index >= len(drive.Accounts) {
			return services.Wrap(services.ErrNotFound, "accounts", "rename", fmt.Sprintf("no account at index %d on drive %s", index, driveID), nil)
		}
		if existing := drive.accountIndex(newName); existing >= 0 && existing != index {
			return services.Wrap(services.ErrDuplicateName, "accounts", "rename", fmt.Sprintf("account %q already exists on drive %s", newName, driveID), nil)
		}
		oldName = drive.Accounts[index].Name
		drive.Accounts[index].Name = newName
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("account renamed",
		logging.String(logging.FieldDriveID, driveID),
		logging.String("old_name", oldName),
		logging.String("new_name", newName))
	return nil
}

// Delete removes the named account. Removing the last account leaves the
// drive metadata in place but unusable until a new account is added.
func (s *Store) Delete(ctx context.Context, driveID, name string) error {
	removed, err := s.DeleteMany(ctx, driveID, []string{name})
	if err != nil {
		return err
	}
	if removed == 0 {
		return services.Wrap(services.ErrNotFound, "accounts", "delete", fmt.Sprintf("account %q not found on drive %s", name, driveID), nil)
	}
	return nil
}

// DeleteMany removes every named account in one atomic update and returns
// how many were removed. Unknown names are ignored.
func (s *Store) DeleteMany(ctx context.Context, driveID string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[name] = struct{}{}
	}

	removed := 0
	err := s.update(ctx, "delete", func(doc *document) error {
		drive := doc.drive(driveID)
		if drive == nil {
			return nil
		}
		kept := drive.Accounts[:0]
		for _, account := range drive.Accounts {
			if _, ok := targets[account.Name]; ok {
				removed++
				continue
			}
			kept = append(kept, account)
		}
		drive.Accounts = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("accounts deleted",
			logging.String(logging.FieldDriveID, driveID),
			logging.Int("removed", removed))
	}
	return removed, nil
}

// DeleteDrive removes the drive and every account it contains.
func (s *Store) DeleteDrive(ctx context.Context, driveID string) error {
	err := s.update(ctx, "delete_drive", func(doc *document) error {
		for i := range doc.Drives {
			if doc.Drives[i].ID == driveID {
				doc.Drives = slices.Delete(doc.Drives, i, i+1)
				return nil
			}
		}
		return services.Wrap(services.ErrNotFound, "accounts", "delete_drive", fmt.Sprintf("drive %s not found", driveID), nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("drive deleted", logging.String(logging.FieldDriveID, driveID))
	return nil
}

// AliasChange describes the effect of SetAlias on the drive's sync folder.
type AliasChange struct {
	Alias        string
	OldLocalPath string
	NewLocalPath string
}

// FolderMoved reports whether the caller should rename the drive's folder
// under the sync root.
func (c AliasChange) FolderMoved() bool {
	return c.OldLocalPath != "" && c.OldLocalPath != c.NewLocalPath
}

// SetAlias assigns a friendly name to driveID. Filesystem-prohibited
// characters are stripped because the alias doubles as the drive's folder
// name under the sync root. Aliases are unique across drives.
func (s *Store) SetAlias(ctx context.Context, driveID, alias string) (AliasChange, error) {
	alias = textutil.StripProhibitedChars(alias)
	if alias == "" {
		return AliasChange{}, services.Wrap(services.ErrValidation, "accounts", "set_alias", "alias is empty", nil)
	}

	var change AliasChange
	err := s.update(ctx, "set_alias", func(doc *document) error {
		drive := doc.drive(driveID)
		if drive == nil {
			return services.Wrap(services.ErrNotFound, "accounts", "set_alias", fmt.Sprintf("drive %s not found", driveID), nil)
		}
		for _, other := range doc.Drives {
			if other.ID != driveID && other.Alias == alias {
				return services.Wrap(services.ErrDuplicateAlias, "accounts", "set_alias", fmt.Sprintf("alias %q already used by drive %s", alias, other.ID), nil)
			}
		}
		change = AliasChange{Alias: alias, OldLocalPath: drive.LocalPath}
		drive.Alias = alias
		if drive.LocalPath != "" {
			drive.LocalPath = alias
		}
		change.NewLocalPath = drive.LocalPath
		return nil
	})
	if err != nil {
		return AliasChange{}, err
	}
	s.logger.Info("drive alias set",
		logging.String(logging.FieldDriveID, driveID),
		logging.String("alias", alias))
	return change, nil
}

// SetLocalPath records the drive's folder relative to the sync root. An
// empty path clears it.
func (s *Store) SetLocalPath(ctx context.Context, driveID, localPath string) error {
	localPath = strings.TrimSpace(localPath)
	if localPath != "" && !IsLocalPath(localPath) {
		return services.Wrap(services.ErrValidation, "accounts", "set_local_path",
			fmt.Sprintf("%q must be a folder inside the sync root", localPath), nil)
	}
	return s.update(ctx, "set_local_path", func(doc *document) error {
		drive := doc.drive(driveID)
		if drive == nil {
			return services.Wrap(services.ErrNotFound, "accounts", "set_local_path", fmt.Sprintf("drive %s not found", driveID), nil)
		}
		drive.LocalPath = localPath
		return nil
	})
}

// UpdateExpiry records a refreshed expiry for the named account. The stored
// expiry only moves forward.
func (s *Store) UpdateExpiry(ctx context.Context, driveID, name string, expiry time.Time) error {
	return s.update(ctx, "update_expiry", func(doc *document) error {
		drive := doc.drive(driveID)
		if drive == nil {
			return services.Wrap(services.ErrNotFound, "accounts", "update_expiry", fmt.Sprintf("drive %s not found", driveID), nil)
		}
		idx := drive.accountIndex(name)
		if idx < 0 {
			return services.Wrap(services.ErrNotFound, "accounts", "update_expiry", fmt.Sprintf("account %q not found on drive %s", name, driveID), nil)
		}
		if expiry.After(drive.Accounts[idx].Expiry) {
			drive.Accounts[idx].Expiry = expiry.UTC()
		}
		return nil
	})
}
