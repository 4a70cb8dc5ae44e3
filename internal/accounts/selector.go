package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gdrive/internal/config"
	"gdrive/internal/logging"
	"gdrive/internal/services"
)

// Refresher obtains a new access token for an account and reports when it
// expires. Implementations must honour ctx cancellation.
type Refresher interface {
	RefreshToken(ctx context.Context, account Account) (time.Time, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, account Account) (time.Time, error)

// RefreshToken calls f.
func (f RefresherFunc) RefreshToken(ctx context.Context, account Account) (time.Time, error) {
	return f(ctx, account)
}

// Selector resolves which credential an operation should use and keeps it
// fresh.
type Selector struct {
	store          *Store
	refresher      Refresher
	manual         bool
	playbackDrive  string
	refreshTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// SelectorOption customises a Selector.
type SelectorOption func(*Selector)

// WithSelectorClock overrides the time source used for expiry checks.
func WithSelectorClock(now func() time.Time) SelectorOption {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSelector builds a selector reading selection mode and refresh bounds
// from cfg.
func NewSelector(cfg *config.Config, store *Store, refresher Refresher, logger *slog.Logger, opts ...SelectorOption) *Selector {
	s := &Selector{
		store:          store,
		refresher:      refresher,
		refreshTimeout: 30 * time.Second,
		logger:         logging.NewComponentLogger(logger, "account-selector"),
		now:            time.Now,
	}
	if cfg != nil {
		s.manual = cfg.ManualAccountSelection()
		s.playbackDrive = cfg.Accounts.PlaybackDrive
		if timeout := cfg.RefreshTimeout(); timeout > 0 {
			s.refreshTimeout = timeout
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveActive returns the account an operation on driveID should use. In
// manual mode the configured playback drive wins regardless of driveID.
func (s *Selector) ResolveActive(driveID string) (DriveAccount, error) {
	target := driveID
	if s.manual {
		target = s.playbackDrive
	}
	account, ok, err := s.store.Default(target)
	if err != nil {
		return DriveAccount{}, err
	}
	if !ok {
		return DriveAccount{}, services.Wrap(services.ErrNotFound, "accounts", "resolve", fmt.Sprintf("no account registered for drive %s", target), nil)
	}
	return DriveAccount{DriveID: target, Account: account}, nil
}

// Acquire resolves the active account for driveID and refreshes it when its
// token has expired.
func (s *Selector) Acquire(ctx context.Context, driveID string) (DriveAccount, error) {
	active, err := s.ResolveActive(driveID)
	if err != nil {
		return DriveAccount{}, err
	}
	if _, err := s.EnsureFresh(ctx, active.DriveID, &active.Account); err != nil {
		return DriveAccount{}, err
	}
	return active, nil
}

// EnsureFresh refreshes account when now is at or past its expiry. On
// success the new expiry is persisted and written back into account. A
// failed refresh leaves the store untouched.
func (s *Selector) EnsureFresh(ctx context.Context, driveID string, account *Account) (bool, error) {
	if account == nil {
		return false, services.Wrap(services.ErrValidation, "accounts", "ensure_fresh", "account is nil", nil)
	}
	if !account.Expired(s.now()) {
		return false, nil
	}
	expiry, err := s.refresh(ctx, *account)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "account refresh failed", "account_refresh_failed",
			logging.String(logging.FieldDriveID, driveID),
			logging.String(logging.FieldAccount, account.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'gdrive accounts validate' to check the stored credentials"),
			logging.String(logging.FieldImpact, "operation cannot use this account"))
		return false, err
	}
	if err := s.store.UpdateExpiry(ctx, driveID, account.Name, expiry); err != nil {
		return false, err
	}
	if expiry.After(account.Expiry) {
		account.Expiry = expiry.UTC()
	}
	s.logger.Debug("account refreshed",
		logging.String(logging.FieldDriveID, driveID),
		logging.String(logging.FieldAccount, account.Name),
		logging.String("expiry", account.Expiry.Format(time.RFC3339)))
	return true, nil
}

// ValidationResult is the outcome of validating one account.
type ValidationResult struct {
	Index   int
	DriveID string
	Account Account
	Err     error
}

// OK reports whether the account refreshed successfully.
func (r ValidationResult) OK() bool {
	return r.Err == nil
}

// ProgressFunc is invoked after each account is validated.
type ProgressFunc func(done, total int, result ValidationResult)

// ValidateAll refreshes every account of driveID independently, persisting
// each successful refresh as it happens. It never deletes: the caller decides
// what to do with failures. Cancellation stops between accounts and returns
// the results gathered so far together with ctx.Err().
func (s *Selector) ValidateAll(ctx context.Context, driveID string, progress ProgressFunc) ([]ValidationResult, error) {
	accounts, err := s.store.Accounts(driveID)
	if err != nil {
		return nil, err
	}
	results := make([]ValidationResult, 0, len(accounts))
	for i, account := range accounts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := ValidationResult{Index: i, DriveID: driveID, Account: account}
		expiry, err := s.refresh(ctx, account)
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		if err != nil {
			result.Err = err
		} else if err := s.store.UpdateExpiry(ctx, driveID, account.Name, expiry); err != nil {
			result.Err = err
		} else if expiry.After(result.Account.Expiry) {
			result.Account.Expiry = expiry.UTC()
		}
		results = append(results, result)
		if progress != nil {
			progress(i+1, len(accounts), result)
		}
	}

	failed := len(Failures(results))
	s.logger.Info("accounts validated",
		logging.String(logging.FieldDriveID, driveID),
		logging.Int("total", len(results)),
		logging.Int("failed", failed))
	return results, nil
}

// Failures returns the results whose refresh failed.
func Failures(results []ValidationResult) []ValidationResult {
	var out []ValidationResult
	for _, result := range results {
		if !result.OK() {
			out = append(out, result)
		}
	}
	return out
}

func (s *Selector) refresh(ctx context.Context, account Account) (time.Time, error) {
	if s.refresher == nil {
		return time.Time{}, services.Wrap(services.ErrRefreshFailed, "accounts", "refresh", "no refresher configured", nil)
	}
	refreshCtx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	expiry, err := s.refresher.RefreshToken(refreshCtx, account)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(refreshCtx.Err(), context.DeadlineExceeded) {
			return time.Time{}, services.Wrap(services.ErrRefreshFailed, "accounts", "refresh", fmt.Sprintf("account %q timed out after %s", account.Name, s.refreshTimeout), err)
		}
		return time.Time{}, services.Wrap(services.ErrRefreshFailed, "accounts", "refresh", fmt.Sprintf("account %q", account.Name), err)
	}
	if expiry.IsZero() {
		return time.Time{}, services.Wrap(services.ErrRefreshFailed, "accounts", "refresh", fmt.Sprintf("account %q: refresher returned no expiry", account.Name), nil)
	}
	return expiry, nil
}
