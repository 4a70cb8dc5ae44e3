// Package gdrive wraps the Google Drive API for stored service accounts.
//
// The Client refreshes access tokens with the account's private key (it
// satisfies accounts.Refresher), lists folders with their video metadata, and
// resolves download and transcoded stream URLs for playback.
package gdrive
