// Package accounts owns the credential lifecycle: which Google identities can
// reach which drive, when their tokens expire, and which one an operation
// should use.
//
// Store persists drives and accounts as a single JSON document. Every
// mutation reloads the document under a cross-process file lock and replaces
// the file atomically, so concurrent invocations never lose each other's
// changes and a crash mid-write leaves the previous file intact.
//
// Selector resolves the active account (honouring the manual playback-drive
// override), refreshes expired tokens through a Refresher, and runs the
// validation sweep. Prompting and deletion decisions stay with the caller.
package accounts
