// Package identification maps scraped media titles to canonical titles and
// years using TMDB.
//
// Resolver cleans the raw title, searches the movie or TV endpoint (first
// with the scraped year, then without) and accepts the best candidate only
// when it clears the confidence thresholds. CachedResolver puts the title
// cache in front of it: a cached correction always wins and the external
// service is consulted at most once per distinct title and year.
package identification
