package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gdrive/internal/logging"
	"gdrive/internal/services"
)

// documentVersion is written into every saved store. Older readers ignore
// fields they do not know, newer fields are preserved only by newer writers.
const documentVersion = 1

const lockRetryDelay = 50 * time.Millisecond

type document struct {
	Version int     `json:"version"`
	Drives  []Drive `json:"drives"`
}

func (d *document) drive(id string) *Drive {
	for i := range d.Drives {
		if d.Drives[i].ID == id {
			return &d.Drives[i]
		}
	}
	return nil
}

func (d *document) ensureDrive(id string) *Drive {
	if drive := d.drive(id); drive != nil {
		return drive
	}
	d.Drives = append(d.Drives, Drive{ID: id})
	return &d.Drives[len(d.Drives)-1]
}

// readDocument decodes a store file. A missing file resolves to an empty
// document; decode failures are reported with ErrImportCorrupt so callers can
// distinguish unreadable input from malformed input.
func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document{Version: documentVersion}, nil
		}
		return document{}, services.Wrap(services.ErrPersistence, "accounts", "read", path, err)
	}
	return decodeDocument(data, path)
}

func decodeDocument(data []byte, source string) (document, error) {
	if len(data) == 0 {
		return document{Version: documentVersion}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, services.Wrap(services.ErrImportCorrupt, "accounts", "decode", source, err)
	}
	for _, drive := range doc.Drives {
		if drive.ID == "" {
			return document{}, services.Wrap(services.ErrImportCorrupt, "accounts", "decode", source+": drive without id", nil)
		}
		if drive.LocalPath != "" && !IsLocalPath(drive.LocalPath) {
			return document{}, services.Wrap(services.ErrImportCorrupt, "accounts", "decode",
				fmt.Sprintf("%s: drive %s local path %q leaves the sync root", source, drive.ID, drive.LocalPath), nil)
		}
		for _, account := range drive.Accounts {
			if account.Name == "" {
				return document{}, services.Wrap(services.ErrImportCorrupt, "accounts", "decode", fmt.Sprintf("%s: unnamed account on drive %s", source, drive.ID), nil)
			}
		}
	}
	return doc, nil
}

// writeDocument replaces path atomically: the document is written to a temp
// file in the same directory, synced, then renamed over the target. A failed
// write leaves the previous file untouched.
func writeDocument(path string, doc document) error {
	doc.Version = documentVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "accounts", "encode", "", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "accounts", "write", "create directory", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "accounts", "write", "create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return services.Wrap(services.ErrPersistence, "accounts", "write", "chmod temp file", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return services.Wrap(services.ErrPersistence, "accounts", "write", "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return services.Wrap(services.ErrPersistence, "accounts", "write", "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return services.Wrap(services.ErrPersistence, "accounts", "write", "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return services.Wrap(services.ErrPersistence, "accounts", "write", "rename temp file", err)
	}
	return nil
}

// update runs fn as one read-modify-write cycle under the cross-process lock.
// The document is re-read after the lock is acquired so changes saved by
// other invocations are never overwritten.
func (s *Store) update(ctx context.Context, op string, fn func(*document) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "accounts", op, "create store directory", err)
	}
	locked, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "accounts", op, fmt.Sprintf("store lock not acquired within %s", s.lockTimeout), err)
		}
		return services.Wrap(services.ErrPersistence, "accounts", op, "acquire store lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrTimeout, "accounts", op, "store lock busy", nil)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			logging.WarnWithContext(s.logger, "failed to release store lock", "store_unlock_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the stale lock file if no other gdrive process is running"))
		}
	}()

	doc, err := readDocument(s.path)
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return writeDocument(s.path, doc)
}
