package playback

import (
	"strings"

	"gdrive/internal/gdrive"
)

// SelectStream walks priority in order and returns the first transcoded
// stream available. It returns false when the original file should play,
// either because "Original" ranks ahead of every available stream or
// because none of the preferred resolutions exist.
func SelectStream(streams []gdrive.Stream, priority []string) (gdrive.Stream, bool) {
	for _, want := range priority {
		want = strings.TrimSpace(want)
		if strings.EqualFold(want, gdrive.ResolutionOriginal) {
			return gdrive.Stream{}, false
		}
		for _, stream := range streams {
			if strings.EqualFold(stream.Resolution, want) {
				return stream, true
			}
		}
	}
	return gdrive.Stream{}, false
}

// Options returns the choices offered when the user picks a resolution:
// "Original" followed by every transcoded stream.
func Options(streams []gdrive.Stream) []string {
	options := make([]string, 0, len(streams)+1)
	options = append(options, gdrive.ResolutionOriginal)
	for _, stream := range streams {
		options = append(options, stream.Resolution)
	}
	return options
}
