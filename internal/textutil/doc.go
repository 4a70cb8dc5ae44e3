// Package textutil holds the small string helpers shared by title matching
// and file naming: token fingerprints with cosine similarity for comparing a
// scraped title against search results, and sanitizers for names that end up
// on disk.
package textutil
