package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decoration tags accepted in the prefix and suffix lists.
const (
	TagDuration   = "duration"
	TagExtension  = "extension"
	TagResolution = "resolution"
)

// Basename is the on-disk name derived from the remote filename alone: the
// extension is stripped and every configured tag that has a value is added
// as "[value] " before or " [value]" after it. Tags without a value and
// unknown tags add nothing.
func (it *Item) Basename() string {
	base := strings.TrimSuffix(it.RemoteName, "."+it.Extension)
	if it.Extension == "" {
		base = it.RemoteName
	}

	var b strings.Builder
	for _, tag := range it.Prefix {
		if value := it.tagValue(tag); value != "" {
			b.WriteString("[" + value + "] ")
		}
	}
	b.WriteString(base)
	for _, tag := range it.Suffix {
		if value := it.tagValue(tag); value != "" {
			b.WriteString(" [" + value + "]")
		}
	}
	return b.String()
}

func (it *Item) tagValue(tag string) string {
	switch tag {
	case TagDuration:
		raw, _ := it.Metadata.Get(KeyDuration)
		seconds, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || seconds <= 0 {
			return ""
		}
		return SecondsToHMS(int(math.Floor(seconds)))
	case TagExtension:
		return strings.ToUpper(it.Extension)
	case TagResolution:
		width, _ := it.Metadata.Get(KeyWidth)
		height, _ := it.Metadata.Get(KeyHeight)
		if !positive(width) || !positive(height) {
			return ""
		}
		return width + "x" + height
	default:
		return ""
	}
}

// SecondsToHMS renders a duration as H:MM:SS, or M:SS under an hour.
func SecondsToHMS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func positive(value string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	return err == nil && n > 0
}
