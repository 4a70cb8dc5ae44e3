// Package playback builds the payloads posted to the local helper server and
// picks the stream a file should play from.
//
// The helper server owns the actual transfer; this package only resolves the
// active account, chooses between the original file and a transcoded stream
// per the configured resolution priority, and posts flat form bodies to
// add_sync_task, play_url and start_player.
package playback
