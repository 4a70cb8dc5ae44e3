package accounts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gdrive/internal/accounts"
	"gdrive/internal/services"
)

func TestExportThenMergeSkipsCollisions(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	mustAdd(t, source, "drive-1", "alice")
	mustAdd(t, source, "drive-1", "bob")
	mustAdd(t, source, "drive-2", "carol")
	if _, err := source.SetAlias(ctx, "drive-2", "Shows"); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "export.json")
	if err := source.Export(exportPath); err != nil {
		t.Fatalf("Export: %v", err)
	}

	target := newStore(t)
	if err := target.Add(ctx, "drive-1", accounts.Account{Name: "alice", Email: "other@example.com"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	report, err := target.Merge(ctx, exportPath)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(report.Added) != 2 || len(report.Skipped) != 1 || report.DrivesCreated != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
	if report.Skipped[0].Account.Name != "alice" || report.Skipped[0].DriveID != "drive-1" {
		t.Fatalf("unexpected skipped entry: %#v", report.Skipped[0])
	}

	list, _ := target.Accounts("drive-1")
	if len(list) != 2 || list[0].Email != "other@example.com" {
		t.Fatalf("existing account overwritten: %#v", list)
	}
	drive, ok, _ := target.Drive("drive-2")
	if !ok || drive.Alias != "Shows" {
		t.Fatalf("expected imported alias, got %#v", drive)
	}

	// Merging the same file again changes nothing.
	again, err := target.Merge(ctx, exportPath)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if len(again.Added) != 0 || len(again.Skipped) != 3 {
		t.Fatalf("expected idempotent merge, got %#v", again)
	}
}

func TestMergeErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	mustAdd(t, store, "drive-1", "alice")

	if _, err := store.Merge(ctx, filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected ErrPersistence for missing file, got %v", err)
	}

	corrupt := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(corrupt, []byte(`{"drives":[{"accounts":[]}]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Merge(ctx, corrupt); !errors.Is(err, services.ErrImportCorrupt) {
		t.Fatalf("expected ErrImportCorrupt, got %v", err)
	}
	escaping := filepath.Join(t.TempDir(), "escaping.json")
	if err := os.WriteFile(escaping, []byte(`{"drives":[{"id":"drive-9","local_path":"../outside","accounts":[]}]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Merge(ctx, escaping); !errors.Is(err, services.ErrImportCorrupt) {
		t.Fatalf("expected ErrImportCorrupt for escaping local path, got %v", err)
	}
	if got := accountNames(t, store, "drive-1"); len(got) != 1 {
		t.Fatalf("store changed after failed merge: %v", got)
	}
	if _, ok, _ := store.Drive("drive-9"); ok {
		t.Fatalf("drive from rejected import was stored")
	}
}

func TestExportRejectsEmptyPath(t *testing.T) {
	store := newStore(t)
	if err := store.Export(" "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
