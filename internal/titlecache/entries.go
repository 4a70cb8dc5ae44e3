package titlecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gdrive/internal/logging"
	"gdrive/internal/services"
)

// Kind selects the movie or series namespace. The same original title may
// carry different corrections in each.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

func (k Kind) table() (string, error) {
	switch k {
	case KindMovie:
		return "movies", nil
	case KindSeries:
		return "series", nil
	default:
		return "", services.Wrap(services.ErrValidation, "titlecache", "kind", fmt.Sprintf("unknown media kind %q", string(k)), nil)
	}
}

// Entry is one stored correction.
type Entry struct {
	Kind          Kind
	OriginalTitle string
	OriginalYear  string
	Title         string
	Year          string
	CreatedAt     time.Time
}

// LookupMovie returns the corrected title and year for a raw movie title.
func (c *Cache) LookupMovie(ctx context.Context, title, year string) (string, string, bool, error) {
	return c.lookup(ctx, KindMovie, title, year)
}

// LookupSeries returns the corrected title and year for a raw series title.
func (c *Cache) LookupSeries(ctx context.Context, title, year string) (string, string, bool, error) {
	return c.lookup(ctx, KindSeries, title, year)
}

// StoreMovie records a movie correction. An existing entry for the same
// original title and year is kept.
func (c *Cache) StoreMovie(ctx context.Context, originalTitle, originalYear, title, year string) error {
	return c.store(ctx, KindMovie, originalTitle, originalYear, title, year)
}

// StoreSeries records a series correction. An existing entry for the same
// original title and year is kept.
func (c *Cache) StoreSeries(ctx context.Context, originalTitle, originalYear, title, year string) error {
	return c.store(ctx, KindSeries, originalTitle, originalYear, title, year)
}

// Lookup dispatches on kind.
func (c *Cache) Lookup(ctx context.Context, kind Kind, title, year string) (string, string, bool, error) {
	return c.lookup(ctx, kind, title, year)
}

// Store dispatches on kind.
func (c *Cache) Store(ctx context.Context, kind Kind, originalTitle, originalYear, title, year string) error {
	return c.store(ctx, kind, originalTitle, originalYear, title, year)
}

func (c *Cache) lookup(ctx context.Context, kind Kind, title, year string) (string, string, bool, error) {
	ctx = ensureContext(ctx)
	table, err := kind.table()
	if err != nil {
		return "", "", false, err
	}
	var newTitle, newYear string
	err = retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			"SELECT title, year FROM "+table+" WHERE original_title = ? AND original_year = ?",
			strings.TrimSpace(title), strings.TrimSpace(year),
		).Scan(&newTitle, &newYear)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, services.Wrap(services.ErrPersistence, "titlecache", "lookup", table, err)
	}
	return newTitle, newYear, true, nil
}

func (c *Cache) store(ctx context.Context, kind Kind, originalTitle, originalYear, title, year string) error {
	ctx = ensureContext(ctx)
	table, err := kind.table()
	if err != nil {
		return err
	}
	originalTitle = strings.TrimSpace(originalTitle)
	title = strings.TrimSpace(title)
	if originalTitle == "" || title == "" {
		return services.Wrap(services.ErrValidation, "titlecache", "store", "title is empty", nil)
	}

	var inserted int64
	err = retryOnBusy(ctx, func() error {
		res, execErr := c.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO "+table+" (original_title, original_year, title, year, created_at) VALUES (?, ?, ?, ?, ?)",
			originalTitle, strings.TrimSpace(originalYear), title, strings.TrimSpace(year),
			c.now().UTC().Format(time.RFC3339Nano),
		)
		if execErr != nil {
			return execErr
		}
		inserted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, "titlecache", "store", table, err)
	}
	if inserted > 0 {
		c.logger.Debug("title correction cached",
			logging.String(logging.FieldMediaKind, string(kind)),
			logging.String("original_title", originalTitle),
			logging.String("title", title),
			logging.String("year", year))
	}
	return nil
}

// List returns every entry of kind ordered by original title.
func (c *Cache) List(ctx context.Context, kind Kind) ([]Entry, error) {
	ctx = ensureContext(ctx)
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	err = retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := c.db.QueryContext(ctx,
			"SELECT original_title, original_year, title, year, created_at FROM "+table+" ORDER BY original_title, original_year")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				entry      = Entry{Kind: kind}
				createdRaw string
			)
			if err := rows.Scan(&entry.OriginalTitle, &entry.OriginalYear, &entry.Title, &entry.Year, &createdRaw); err != nil {
				return err
			}
			if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
				entry.CreatedAt = ts
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "titlecache", "list", table, err)
	}
	return entries, nil
}

// Count returns the number of stored movie and series corrections.
func (c *Cache) Count(ctx context.Context) (movies, series int, err error) {
	ctx = ensureContext(ctx)
	err = retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			"SELECT (SELECT COUNT(1) FROM movies), (SELECT COUNT(1) FROM series)",
		).Scan(&movies, &series)
	})
	if err != nil {
		return 0, 0, services.Wrap(services.ErrPersistence, "titlecache", "count", "", err)
	}
	return movies, series, nil
}
