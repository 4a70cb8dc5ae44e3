package identification

import (
	"context"
	"log/slog"
	"strings"

	"gdrive/internal/logging"
	"gdrive/internal/services"
	"gdrive/internal/titlecache"
)

// Cache is the title correction store consulted before any lookup.
type Cache interface {
	Lookup(ctx context.Context, kind titlecache.Kind, title, year string) (newTitle, newYear string, ok bool, err error)
	Store(ctx context.Context, kind titlecache.Kind, originalTitle, originalYear, title, year string) error
}

// CachedResolver answers from the cache and only asks the resolver on a
// miss, storing whatever it identifies.
type CachedResolver struct {
	cache    Cache
	resolver TitleResolver
	logger   *slog.Logger
}

// NewCachedResolver composes cache and resolver.
func NewCachedResolver(cache Cache, resolver TitleResolver, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{
		cache:    cache,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "title-resolver"),
	}
}

// Resolve returns the corrected title for rawTitle/rawYear. It fails with
// ErrUnresolvedTitle when neither the cache nor the resolver knows the title;
// service failures are wrapped with the same marker so callers can degrade
// to the raw name.
func (c *CachedResolver) Resolve(ctx context.Context, rawTitle, rawYear string, kind titlecache.Kind) (Match, error) {
	rawTitle = strings.TrimSpace(rawTitle)
	rawYear = strings.TrimSpace(rawYear)
	if rawTitle == "" {
		return Match{}, services.Wrap(services.ErrUnresolvedTitle, "identification", "resolve", "raw title is empty", nil)
	}

	if c.cache != nil {
		title, year, ok, err := c.cache.Lookup(ctx, kind, rawTitle, rawYear)
		if err != nil {
			return Match{}, err
		}
		if ok {
			return Match{Title: title, Year: year, Cached: true}, nil
		}
	}

	if c.resolver == nil {
		return Match{}, services.Wrap(services.ErrUnresolvedTitle, "identification", "resolve", rawTitle+": no resolver configured", nil)
	}
	match, ok, err := c.resolver.ProcessTitle(ctx, rawTitle, rawYear, kind)
	if err != nil {
		return Match{}, services.Wrap(services.ErrUnresolvedTitle, "identification", "resolve", rawTitle, err)
	}
	if !ok {
		return Match{}, services.Wrap(services.ErrUnresolvedTitle, "identification", "resolve", rawTitle, nil)
	}

	if c.cache != nil {
		if err := c.cache.Store(ctx, kind, rawTitle, rawYear, match.Title, match.Year); err != nil {
			return Match{}, err
		}
		c.logger.Debug("title correction stored",
			logging.String(logging.FieldMediaKind, string(kind)),
			logging.String("original_title", rawTitle),
			logging.String("title", match.Title))
	}
	return match, nil
}
