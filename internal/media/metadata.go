package media

import (
	"slices"
	"strconv"
)

// Well-known metadata keys.
const (
	KeyDuration  = "video_duration"
	KeyWidth     = "video_width"
	KeyHeight    = "video_height"
	KeyDriveID   = "drive_id"
	KeyFileID    = "file_id"
	KeyEncrypted = "encrypted"
)

// Metadata is an insertion-ordered string mapping. Order matters because the
// STRM payload serializes keys in the order they were first set.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata builds a mapping from alternating key, value pairs.
func NewMetadata(pairs ...string) Metadata {
	var m Metadata
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// VideoMetadata builds the mapping Drive reports for a video file. Zero
// values are left out.
func VideoMetadata(durationSeconds float64, width, height int) Metadata {
	var m Metadata
	if durationSeconds > 0 {
		m.Set(KeyDuration, strconv.FormatFloat(durationSeconds, 'f', -1, 64))
	}
	if width > 0 {
		m.Set(KeyWidth, strconv.Itoa(width))
	}
	if height > 0 {
		m.Set(KeyHeight, strconv.Itoa(height))
	}
	return m
}

// Set assigns value to key. Existing keys keep their position.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored for key.
func (m Metadata) Get(key string) (string, bool) {
	value, ok := m.values[key]
	return value, ok
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	return slices.Clone(m.keys)
}

// Len returns the number of keys.
func (m Metadata) Len() int {
	return len(m.keys)
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	var out Metadata
	for _, key := range m.keys {
		out.Set(key, m.values[key])
	}
	return out
}
