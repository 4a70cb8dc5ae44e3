package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteServiceAccountKey writes a service-account key file in the layout the
// Google console exports and returns its path. Empty fields are omitted so
// callers can exercise missing-field validation.
func WriteServiceAccountKey(t testing.TB, dir, email, privateKey string) string {
	t.Helper()

	doc := map[string]string{
		"type":      "service_account",
		"token_uri": "https://oauth2.googleapis.com/token",
	}
	if email != "" {
		doc["client_email"] = email
	}
	if privateKey != "" {
		doc["private_key"] = privateKey
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for key: %v", err)
	}
	path := filepath.Join(dir, "service-account.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write key %s: %v", path, err)
	}
	return path
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
