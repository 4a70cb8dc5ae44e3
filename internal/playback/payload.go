package playback

import (
	"net/url"
	"strings"
)

// Helper server endpoints.
const (
	PathSyncTask    = "/add_sync_task"
	PathPlayURL     = "/play_url"
	PathStartPlayer = "/start_player"
)

// Payload is a flat key=value body posted to the helper server. Keys keep
// insertion order.
type Payload struct {
	keys   []string
	values map[string]string
}

func newPayload(pairs ...string) Payload {
	p := Payload{values: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, ok := p.values[pairs[i]]; !ok {
			p.keys = append(p.keys, pairs[i])
		}
		p.values[pairs[i]] = pairs[i+1]
	}
	return p
}

// Get returns the value stored for key.
func (p Payload) Get(key string) string {
	return p.values[key]
}

// Encode renders the payload as an ordered form body.
func (p Payload) Encode() string {
	var b strings.Builder
	for i, key := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[key]))
	}
	return b.String()
}

// SyncPayload asks the helper server to sync folderID of driveID into a
// local folder named folderName. An empty folderID syncs the drive root.
func SyncPayload(driveID, folderID, folderName string) Payload {
	if strings.TrimSpace(folderID) == "" {
		folderID = driveID
	}
	return newPayload(
		"drive_id", driveID,
		"folder_id", folderID,
		"folder_name", folderName,
	)
}

// PlayPayload hands a resolved stream URL to the helper server. transcoded
// is the selected resolution, or empty when the original file plays.
func PlayPayload(encrypted bool, streamURL, driveID, fileID, transcoded string) Payload {
	if transcoded == "" {
		transcoded = formatBool(false)
	}
	return newPayload(
		"encrypted", formatBool(encrypted),
		"url", streamURL,
		"driveid", driveID,
		"fileid", fileID,
		"transcoded", transcoded,
	)
}

// StartPlayerPayload tells the helper server which library item started
// playing so it can track watch state. Items outside the library send zeros.
func StartPlayerPayload(dbID, dbType string, widget bool) Payload {
	if strings.TrimSpace(dbID) == "" || strings.TrimSpace(dbType) == "" {
		return newPayload("dbid", "0", "dbtype", "0", "widget", "0", "track", "0")
	}
	w := "0"
	if widget {
		w = "1"
	}
	return newPayload("dbid", dbID, "dbtype", dbType, "widget", w, "track", "1")
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
