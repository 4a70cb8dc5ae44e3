// Package config loads, normalizes, and validates gdrive configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY. The Config value is passed explicitly to the account
// selector, name formatter, and clients; nothing reads it through globals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical tag lists, and clear validation errors.
package config
