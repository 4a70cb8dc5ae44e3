package accounts_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gdrive/internal/accounts"
	"gdrive/internal/services"
)

func newStore(t *testing.T) *accounts.Store {
	t.Helper()
	store, err := accounts.NewStore(filepath.Join(t.TempDir(), "accounts.json"), accounts.WithLockTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func mustAdd(t *testing.T, store *accounts.Store, driveID, name string) {
	t.Helper()
	if err := store.Add(context.Background(), driveID, accounts.Account{Name: name, Email: name + "@example.com", Type: accounts.TypeService}); err != nil {
		t.Fatalf("Add %s: %v", name, err)
	}
}

func accountNames(t *testing.T, store *accounts.Store, driveID string) []string {
	t.Helper()
	list, err := store.Accounts(driveID)
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	names := make([]string, 0, len(list))
	for _, account := range list {
		names = append(names, account.Name)
	}
	return names
}

func TestAddRejectsDuplicateNameWithinDrive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustAdd(t, store, "drive-1", "alice")

	err := store.Add(ctx, "drive-1", accounts.Account{Name: "alice"})
	if !errors.Is(err, services.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if got := accountNames(t, store, "drive-1"); len(got) != 1 {
		t.Fatalf("store changed after rejected add: %v", got)
	}

	// The same name on a different drive is fine.
	mustAdd(t, store, "drive-2", "alice")
}

func TestAccountsKeepRegistrationOrder(t *testing.T) {
	store := newStore(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		mustAdd(t, store, "drive-1", name)
	}
	got := fmt.Sprint(accountNames(t, store, "drive-1"))
	if got != "[carol alice bob]" {
		t.Fatalf("unexpected order %s", got)
	}
	first, ok, err := store.Default("drive-1")
	if err != nil || !ok {
		t.Fatalf("Default: ok=%v err=%v", ok, err)
	}
	if first.Name != "carol" {
		t.Fatalf("expected first registered account, got %q", first.Name)
	}
	if first.RegisteredAt.IsZero() {
		t.Fatal("expected registration timestamp")
	}
}

func TestRenameValidation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustAdd(t, store, "drive-1", "alice")
	mustAdd(t, store, "drive-1", "bob")

	if err := store.Rename(ctx, "drive-1", 0, "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := store.Rename(ctx, "drive-1", 0, "bob"); !errors.Is(err, services.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if err := store.Rename(ctx, "drive-1", 5, "zed"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := fmt.Sprint(accountNames(t, store, "drive-1")); got != "[alice bob]" {
		t.Fatalf("store changed after rejected renames: %s", got)
	}

	if err := store.Rename(ctx, "drive-1", 1, "robert"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := fmt.Sprint(accountNames(t, store, "drive-1")); got != "[alice robert]" {
		t.Fatalf("unexpected names after rename: %s", got)
	}
}

func TestDeleteLastAccountKeepsDrive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustAdd(t, store, "drive-1", "alice")
	if _, err := store.SetAlias(ctx, "drive-1", "Movies"); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}

	if err := store.Delete(ctx, "drive-1", "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	drive, ok, err := store.Drive("drive-1")
	if err != nil || !ok {
		t.Fatalf("Drive: ok=%v err=%v", ok, err)
	}
	if drive.Browsable() {
		t.Fatal("drive without accounts must not be browsable")
	}
	if drive.Alias != "Movies" {
		t.Fatalf("drive metadata lost: %#v", drive)
	}
	if _, ok, _ := store.Default("drive-1"); ok {
		t.Fatal("expected no default account")
	}
	if err := store.Delete(ctx, "drive-1", "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteManyAndDeleteDrive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		mustAdd(t, store, "drive-1", name)
	}
	removed, err := store.DeleteMany(ctx, "drive-1", []string{"a", "c", "missing"})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if got := fmt.Sprint(accountNames(t, store, "drive-1")); got != "[b]" {
		t.Fatalf("unexpected names: %s", got)
	}

	if err := store.DeleteDrive(ctx, "drive-1"); err != nil {
		t.Fatalf("DeleteDrive: %v", err)
	}
	if _, ok, _ := store.Drive("drive-1"); ok {
		t.Fatal("drive still present after DeleteDrive")
	}
	if err := store.DeleteDrive(ctx, "drive-1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAliasSanitizesAndStaysUnique(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustAdd(t, store, "drive-1", "alice")
	mustAdd(t, store, "drive-2", "bob")
	if err := store.SetLocalPath(ctx, "drive-1", "drive-1"); err != nil {
		t.Fatalf("SetLocalPath: %v", err)
	}

	change, err := store.SetAlias(ctx, "drive-1", `My:Movies?`)
	if err != nil {
		t.Fatalf("SetAlias: %v", err)
	}
	if change.Alias != "MyMovies" {
		t.Fatalf("expected sanitized alias, got %q", change.Alias)
	}
	if !change.FolderMoved() || change.OldLocalPath != "drive-1" || change.NewLocalPath != "MyMovies" {
		t.Fatalf("unexpected folder change: %#v", change)
	}

	if _, err := store.SetAlias(ctx, "drive-2", "MyMovies"); !errors.Is(err, services.ErrDuplicateAlias) {
		t.Fatalf("expected ErrDuplicateAlias, got %v", err)
	}
	if _, err := store.SetAlias(ctx, "drive-2", "???"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for alias empty after sanitizing, got %v", err)
	}
	// Re-assigning a drive its own alias is not a conflict.
	if _, err := store.SetAlias(ctx, "drive-1", "MyMovies"); err != nil {
		t.Fatalf("re-set own alias: %v", err)
	}

	aliases, err := store.Aliases()
	if err != nil {
		t.Fatalf("Aliases: %v", err)
	}
	if fmt.Sprint(aliases) != "[MyMovies]" {
		t.Fatalf("unexpected aliases %v", aliases)
	}
}

func TestUpdateExpiryOnlyAdvances(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustAdd(t, store, "drive-1", "alice")

	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpdateExpiry(ctx, "drive-1", "alice", later); err != nil {
		t.Fatalf("UpdateExpiry: %v", err)
	}
	if err := store.UpdateExpiry(ctx, "drive-1", "alice", later.Add(-time.Hour)); err != nil {
		t.Fatalf("UpdateExpiry earlier: %v", err)
	}
	account, _, _ := store.Default("drive-1")
	if !account.Expiry.Equal(later) {
		t.Fatalf("expiry moved backwards: %v", account.Expiry)
	}
}

func TestStateSurvivesNewStoreInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "accounts.json")
	first, err := accounts.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	mustAdd(t, first, "drive-1", "alice")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat store: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 store file, got %v", perm)
	}

	second, err := accounts.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := accountNames(t, second, "drive-1"); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("unexpected accounts after reload: %v", got)
	}
}

func TestConcurrentAddsFromSeparateStoresAreAllKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := accounts.NewStore(path, accounts.WithLockTimeout(5*time.Second))
			if err != nil {
				errs <- err
				return
			}
			errs <- store.Add(context.Background(), "drive-1", accounts.Account{Name: fmt.Sprintf("acct-%d", i)})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Add: %v", err)
		}
	}

	store, _ := accounts.NewStore(path)
	if got := accountNames(t, store, "drive-1"); len(got) != writers {
		t.Fatalf("expected %d accounts, got %v", writers, got)
	}
}

func TestCorruptStoreIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, _ := accounts.NewStore(path)
	if _, err := store.Accounts("drive-1"); !errors.Is(err, services.ErrImportCorrupt) {
		t.Fatalf("expected ErrImportCorrupt, got %v", err)
	}
	if err := store.Add(context.Background(), "drive-1", accounts.Account{Name: "alice"}); err == nil {
		t.Fatal("expected add on corrupt store to fail")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{not json" {
		t.Fatalf("corrupt store was overwritten: %q", data)
	}
}

func TestSetLocalPathStaysInsideSyncRoot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustAdd(t, store, "drive-1", "alice")

	for _, bad := range []string{"../outside", "/srv/media", ".", "Movies/../../up"} {
		if err := store.SetLocalPath(ctx, "drive-1", bad); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("SetLocalPath(%q): expected ErrValidation, got %v", bad, err)
		}
	}
	if err := store.SetLocalPath(ctx, "drive-1", "Media/Movies"); err != nil {
		t.Fatalf("SetLocalPath: %v", err)
	}
	drive, _, _ := store.Drive("drive-1")
	if drive.LocalPath != "Media/Movies" {
		t.Fatalf("local path = %q", drive.LocalPath)
	}
	if err := store.SetLocalPath(ctx, "drive-1", ""); err != nil {
		t.Fatalf("clear local path: %v", err)
	}
}
