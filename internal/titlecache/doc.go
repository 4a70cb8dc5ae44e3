// Package titlecache remembers how raw media titles were corrected by title
// identification so each distinct (title, year) pair hits the external
// service at most once.
//
// Movies and series live in separate tables keyed by the original title and
// year. Entries are immutable: the first stored correction wins and nothing
// expires. The database is SQLite in WAL mode and tolerates concurrent
// invocations through busy-timeout retries.
package titlecache
