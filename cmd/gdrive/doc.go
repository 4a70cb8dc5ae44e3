// Package main hosts the gdrive CLI entrypoint and command graph.
//
// Commands manage the credential store (accounts, drives, aliases), resolve
// canonical names and STRM links for remote videos, inspect the title cache,
// and hand play or sync requests to the local helper server. Configuration
// loading, logging and correlation IDs are wired once in commandContext so
// subcommands only translate flags into calls on the internal packages.
package main
