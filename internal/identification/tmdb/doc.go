// Package tmdb provides the minimal TMDB API client used for title
// identification.
//
// It authenticates requests and exposes movie and TV search with an optional
// year filter. Requests can be rate limited so resolving a large folder does
// not trip TMDB throttling. Options allow tests to supply custom HTTP clients
// without modifying production code.
package tmdb
