package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gdrive/internal/identification"
	"gdrive/internal/services"
	"gdrive/internal/textutil"
)

// Resolved is the canonical naming of an item.
type Resolved struct {
	Title    string
	Year     string
	Filename string
	// Cached reports that the correction came from the title cache.
	Cached bool
}

// FormatName resolves the item's corrected title (cache first, resolver on a
// miss) and builds its canonical filename. It fails with ErrUnresolvedTitle
// when the title cannot be identified.
func (it *Item) FormatName(ctx context.Context, cache identification.Cache, resolver identification.TitleResolver) (Resolved, error) {
	match, err := identification.NewCachedResolver(cache, resolver, nil).Resolve(ctx, it.Title, it.Year, it.Kind.cacheKind())
	if err != nil {
		return Resolved{}, err
	}

	var filename string
	switch it.Kind {
	case KindEpisode:
		filename = episodeFilename(match.Title, it.Season, it.Episodes)
	case KindMovie:
		filename = movieFilename(match.Title, match.Year)
	default:
		return Resolved{}, services.Wrap(services.ErrValidation, "media", "format_name", fmt.Sprintf("unknown media kind %q", string(it.Kind)), nil)
	}
	return Resolved{
		Title:    match.Title,
		Year:     match.Year,
		Filename: textutil.SanitizeFileName(filename),
		Cached:   match.Cached,
	}, nil
}

// DisplayName returns the canonical filename, or the decorated remote name
// when the title cannot be identified. Other failures are returned.
func (it *Item) DisplayName(ctx context.Context, cache identification.Cache, resolver identification.TitleResolver) (string, error) {
	resolved, err := it.FormatName(ctx, cache, resolver)
	if err == nil {
		return resolved.Filename, nil
	}
	if errors.Is(err, services.ErrUnresolvedTitle) {
		return it.Basename(), nil
	}
	return "", err
}

func movieFilename(title, year string) string {
	if year == "" {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, year)
}

func episodeFilename(title string, season int, episodes []int) string {
	parts := make([]string, 0, len(episodes))
	for _, ep := range episodes {
		parts = append(parts, fmt.Sprintf("%02d", ep))
	}
	return fmt.Sprintf("%s S%02dE%s", title, season, strings.Join(parts, "-"))
}
