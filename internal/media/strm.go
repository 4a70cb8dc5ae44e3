package media

import (
	"net/url"
	"strings"

	"gdrive/internal/services"
)

// STRMPrefix is the fixed head of every playback deep link.
const STRMPrefix = "plugin://plugin.video.gdrive/?mode=video"

// STRMContents merges the drive id, file id and encryption flag into the
// item's metadata and renders the deep link written into .strm files. Keys
// appear in metadata order and empty values are skipped.
func (it *Item) STRMContents(driveID string) string {
	it.Metadata.Set(KeyDriveID, driveID)
	it.Metadata.Set(KeyFileID, it.RemoteID)
	it.Metadata.Set(KeyEncrypted, formatBool(it.Encrypted))

	var b strings.Builder
	b.WriteString(STRMPrefix)
	for _, key := range it.Metadata.keys {
		value := it.Metadata.values[key]
		if value == "" {
			continue
		}
		b.WriteString("&" + url.QueryEscape(key) + "=" + url.QueryEscape(value))
	}
	return b.String()
}

// ParseSTRM reverses STRMContents, returning the metadata in payload order.
func ParseSTRM(payload string) (Metadata, error) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, STRMPrefix) {
		return Metadata{}, services.Wrap(services.ErrValidation, "media", "parse_strm", "not a gdrive playback link", nil)
	}
	var m Metadata
	rest := strings.TrimPrefix(payload, STRMPrefix)
	for _, pair := range strings.Split(rest, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return Metadata{}, services.Wrap(services.ErrValidation, "media", "parse_strm", "malformed key "+rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return Metadata{}, services.Wrap(services.ErrValidation, "media", "parse_strm", "malformed value for "+key, err)
		}
		m.Set(key, value)
	}
	return m, nil
}

// ParseEncrypted reads the encryption flag written by STRMContents.
func ParseEncrypted(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// formatBool matches the capitalised flag the playback helper expects.
func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
