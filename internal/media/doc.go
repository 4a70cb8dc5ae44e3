// Package media derives names and playback payloads for remote video files.
//
// An Item is a tagged variant: movies and episodes share one shell and differ
// only in how FormatName builds the canonical filename ("Title (Year)" versus
// "Title S01E02-03"). Basename is independent of title identification and
// decorates the remote name with duration, extension, and resolution tags.
// STRMContents renders the deep link written into placeholder files.
package media
