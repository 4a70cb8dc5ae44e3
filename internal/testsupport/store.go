package testsupport

import (
	"context"
	"testing"

	"gdrive/internal/accounts"
	"gdrive/internal/config"
	"gdrive/internal/titlecache"
)

// MustOpenAccountStore opens the credential store configured in cfg.
func MustOpenAccountStore(t testing.TB, cfg *config.Config) *accounts.Store {
	t.Helper()

	store, err := accounts.NewStore(cfg.Accounts.StorePath, accounts.WithLockTimeout(cfg.LockTimeout()))
	if err != nil {
		t.Fatalf("accounts.NewStore: %v", err)
	}
	return store
}

// MustOpenTitleCache opens the title cache configured in cfg and registers cleanup.
func MustOpenTitleCache(t testing.TB, cfg *config.Config) *titlecache.Cache {
	t.Helper()

	cache, err := titlecache.Open(context.Background(), cfg.TitleCache.Path, nil)
	if err != nil {
		t.Fatalf("titlecache.Open: %v", err)
	}
	t.Cleanup(func() {
		cache.Close()
	})
	return cache
}
