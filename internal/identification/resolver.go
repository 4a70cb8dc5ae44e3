package identification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gdrive/internal/config"
	"gdrive/internal/identification/tmdb"
	"gdrive/internal/logging"
	"gdrive/internal/services"
	"gdrive/internal/titlecache"
)

// Match is a corrected title.
type Match struct {
	Title  string
	Year   string
	TMDBID int64
	// Cached is set when the match came from the title cache.
	Cached bool
}

// TitleResolver identifies a raw title. ok is false when the title could not
// be identified; err is reserved for service failures.
type TitleResolver interface {
	ProcessTitle(ctx context.Context, rawTitle, rawYear string, kind titlecache.Kind) (match Match, ok bool, err error)
}

// Resolver identifies titles against TMDB.
type Resolver struct {
	search *tmdbSearch
	logger *slog.Logger
}

var _ TitleResolver = (*Resolver)(nil)

// NewResolver wraps an existing TMDB searcher.
func NewResolver(client tmdb.Searcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		search: newTMDBSearch(client),
		logger: logging.NewComponentLogger(logger, "identification"),
	}
}

// NewResolverFromConfig builds a rate-limited TMDB client from cfg.
func NewResolverFromConfig(cfg *config.Config, logger *slog.Logger) (*Resolver, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrValidation, "identification", "init", "config is nil", nil)
	}
	if err := cfg.ValidateTMDB(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "identification", "init", "tmdb configuration", err)
	}
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithTimeout(time.Duration(cfg.TMDB.RequestTimeout)*time.Second),
		tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "identification", "init", "tmdb client", err)
	}
	return NewResolver(client, logger), nil
}

// ProcessTitle searches TMDB for rawTitle. When a year is given the search is
// filtered by it first and retried without the filter if nothing confident
// comes back, since scraped years are often off by one.
func (r *Resolver) ProcessTitle(ctx context.Context, rawTitle, rawYear string, kind titlecache.Kind) (Match, bool, error) {
	query := cleanTitle(rawTitle)
	if query == "" {
		return Match{}, false, nil
	}
	year := parseYear(rawYear)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldMediaKind, string(kind)),
		logging.String("query", query),
		logging.Int("year", year),
	)

	years := []int{year}
	if year > 0 {
		years = append(years, 0)
	}
	for _, filter := range years {
		resp, err := r.search.search(ctx, query, filter, kind)
		if err != nil {
			return Match{}, false, classifySearchError(err)
		}
		best := selectBestResult(logger, query, year, resp)
		if best == nil {
			continue
		}
		match := Match{Title: pickTitle(*best), Year: best.Year(), TMDBID: best.ID}
		if match.Year == "" {
			match.Year = rawYear
		}
		logger.Info("title identified",
			logging.String("title", match.Title),
			logging.String("matched_year", match.Year),
			logging.Int64("tmdb_id", match.TMDBID),
			logging.Bool("year_filter", filter > 0))
		return match, true, nil
	}

	logger.Info("title not identified", logging.String(logging.FieldEventType, "title_unidentified"))
	return Match{}, false, nil
}

func classifySearchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "identification", "search", "tmdb request timed out", err)
	}
	var statusErr *tmdb.StatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
		return services.Wrap(services.ErrValidation, "identification", "search", fmt.Sprintf("tmdb rejected request (status %d)", statusErr.StatusCode), err)
	}
	return services.Wrap(services.ErrTransient, "identification", "search", "tmdb request failed", err)
}
