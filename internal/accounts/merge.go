package accounts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"gdrive/internal/logging"
	"gdrive/internal/services"
)

// MergeReport summarises an import.
type MergeReport struct {
	Added         []DriveAccount
	Skipped       []DriveAccount
	DrivesCreated int
}

// Merge unions the accounts found in importPath into the store. Accounts whose
// name already exists in the target drive are skipped and reported; existing
// entries are never overwritten. An alias carried by the import is adopted
// only when the target drive has none and no other drive uses it.
func (s *Store) Merge(ctx context.Context, importPath string) (MergeReport, error) {
	importPath = strings.TrimSpace(importPath)
	data, err := os.ReadFile(importPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MergeReport{}, services.Wrap(services.ErrPersistence, "accounts", "merge", "import file not found: "+importPath, err)
		}
		return MergeReport{}, services.Wrap(services.ErrPersistence, "accounts", "merge", "read import file", err)
	}
	incoming, err := decodeDocument(data, importPath)
	if err != nil {
		return MergeReport{}, err
	}

	var report MergeReport
	err = s.update(ctx, "merge", func(doc *document) error {
		report = MergeReport{}
		for _, src := range incoming.Drives {
			if doc.drive(src.ID) == nil {
				report.DrivesCreated++
			}
			dst := doc.ensureDrive(src.ID)
			if dst.Alias == "" && src.Alias != "" && !aliasInUse(doc, src.ID, src.Alias) {
				dst.Alias = src.Alias
			}
			if dst.LocalPath == "" {
				dst.LocalPath = src.LocalPath
			}
			for _, account := range src.Accounts {
				entry := DriveAccount{DriveID: src.ID, Account: account}
				if dst.accountIndex(account.Name) >= 0 {
					report.Skipped = append(report.Skipped, entry)
					continue
				}
				dst.Accounts = append(dst.Accounts, account)
				report.Added = append(report.Added, entry)
			}
		}
		return nil
	})
	if err != nil {
		return MergeReport{}, err
	}

	for _, skipped := range report.Skipped {
		logging.WarnWithContext(s.logger, "import skipped existing account", "account_import_skipped",
			logging.String(logging.FieldDriveID, skipped.DriveID),
			logging.String(logging.FieldAccount, skipped.Account.Name),
			logging.String(logging.FieldErrorHint, "rename the account in the import file to keep both"),
			logging.String(logging.FieldImpact, "stored account kept unchanged"))
	}
	s.logger.Info("accounts imported",
		logging.String("source", importPath),
		logging.Int("added", len(report.Added)),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("drives_created", report.DrivesCreated))
	return report, nil
}

// Export writes the whole store to path using the same atomic replace as
// regular saves.
func (s *Store) Export(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrValidation, "accounts", "export", "export path is empty", nil)
	}
	doc, err := readDocument(s.path)
	if err != nil {
		return err
	}
	if err := writeDocument(path, doc); err != nil {
		return err
	}
	s.logger.Info("accounts exported",
		logging.String("destination", path),
		logging.Int("drives", len(doc.Drives)))
	return nil
}

func aliasInUse(doc *document, driveID, alias string) bool {
	for _, drive := range doc.Drives {
		if drive.ID != driveID && drive.Alias == alias {
			return true
		}
	}
	return false
}
