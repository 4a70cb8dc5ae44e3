package identification

import (
	"context"
	"errors"
	"sync"
	"time"

	"gdrive/internal/identification/tmdb"
	"gdrive/internal/titlecache"
)

type tmdbCacheEntry struct {
	resp    *tmdb.Response
	expires time.Time
}

// tmdbSearch memoizes search responses for the lifetime of one invocation so
// a folder full of episodes of the same show costs one request. Throttling
// is the client's job.
type tmdbSearch struct {
	client   tmdb.Searcher
	cache    map[string]tmdbCacheEntry
	cacheTTL time.Duration
	mu       sync.Mutex
}

func newTMDBSearch(client tmdb.Searcher) *tmdbSearch {
	return &tmdbSearch{
		client:   client,
		cache:    make(map[string]tmdbCacheEntry),
		cacheTTL: 10 * time.Minute,
	}
}

func (s *tmdbSearch) search(ctx context.Context, title string, year int, kind titlecache.Kind) (*tmdb.Response, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("tmdb client unavailable")
	}

	query := tmdb.Query{Type: tmdb.Movie, Text: title, Year: year}
	if kind == titlecache.KindSeries {
		query.Type = tmdb.TV
	}
	key := query.Key()

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expires) {
		s.mu.Unlock()
		return entry.resp, nil
	}
	s.mu.Unlock()

	resp, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = tmdbCacheEntry{resp: resp, expires: time.Now().Add(s.cacheTTL)}
	s.mu.Unlock()
	return resp, nil
}
