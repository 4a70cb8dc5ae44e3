package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"gdrive/internal/accounts"
	"gdrive/internal/config"
	"gdrive/internal/services"
	"gdrive/internal/testsupport"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLI(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMDB_API_KEY", "")
	cfg := testsupport.NewConfig(t, opts...)
	env := &cliEnv{cfg: cfg, configPath: filepath.Join(testsupport.BaseDir(cfg), "config.toml")}
	env.writeConfig(t)
	return env
}

func (e *cliEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func testPrivateKey(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLI(t)

	out, _, err := runCLI(t, env, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, env, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, env, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "********")
}

func TestAccountsImportListRenameDelete(t *testing.T) {
	env := setupCLI(t)
	ctx := context.Background()

	source, err := accounts.NewStore(filepath.Join(t.TempDir(), "source.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, name := range []string{"alice", "bob"} {
		if err := source.Add(ctx, "drive-1", accounts.Account{Name: name, Email: name + "@example.com", Key: "secret", Type: accounts.TypeService}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	exportPath := filepath.Join(t.TempDir(), "export.json")
	if err := source.Export(exportPath); err != nil {
		t.Fatalf("Export: %v", err)
	}

	out, _, err := runCLI(t, env, "", "accounts", "import", exportPath)
	if err != nil {
		t.Fatalf("accounts import: %v", err)
	}
	requireContains(t, out, "Imported 2 accounts (1 new drives)")

	out, _, err = runCLI(t, env, "", "accounts", "import", exportPath)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	requireContains(t, out, "Skipped alice on drive drive-1")

	out, _, err = runCLI(t, env, "", "--json", "accounts", "list", "drive-1")
	if err != nil {
		t.Fatalf("accounts list: %v", err)
	}
	if strings.Contains(out, "secret") {
		t.Fatal("account listing leaked the private key")
	}
	var listed []accountView
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 2 || listed[0].Name != "alice" || listed[1].Index != 2 {
		t.Fatalf("unexpected listing %#v", listed)
	}

	if _, _, err := runCLI(t, env, "", "accounts", "rename", "drive-1", "2", "alice"); services.ExitCode(err) != services.ExitUserError {
		t.Fatalf("expected duplicate name user error, got %v", err)
	}
	if _, _, err := runCLI(t, env, "", "accounts", "rename", "drive-1", "2", "robert"); err != nil {
		t.Fatalf("accounts rename: %v", err)
	}

	out, _, err = runCLI(t, env, "n\n", "accounts", "delete", "drive-1", "robert")
	if err != nil {
		t.Fatalf("declined delete: %v", err)
	}
	requireContains(t, out, "Nothing deleted")

	if _, _, err := runCLI(t, env, "", "accounts", "delete", "drive-1", "robert", "--yes"); err != nil {
		t.Fatalf("accounts delete: %v", err)
	}
	if _, _, err := runCLI(t, env, "", "accounts", "delete", "drive-1", "robert", "--yes"); services.ExitCode(err) != services.ExitNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	out, _, err = runCLI(t, env, "", "drives", "list")
	if err != nil {
		t.Fatalf("drives list: %v", err)
	}
	requireContains(t, out, "drive-1")
}

func TestDrivesAliasMovesSyncFolder(t *testing.T) {
	env := setupCLI(t)
	ctx := context.Background()
	store := testsupport.MustOpenAccountStore(t, env.cfg)
	for _, driveID := range []string{"drive-1", "drive-2"} {
		if err := store.Add(ctx, driveID, accounts.Account{Name: "svc"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := store.SetLocalPath(ctx, "drive-1", "drive-1"); err != nil {
		t.Fatalf("SetLocalPath: %v", err)
	}
	oldFolder := filepath.Join(env.cfg.Paths.SyncRoot, "drive-1")
	testsupport.WriteFile(t, filepath.Join(oldFolder, "Movie.strm"), []byte("plugin://x"))

	out, _, err := runCLI(t, env, "", "drives", "alias", "drive-1", "Movies")
	if err != nil {
		t.Fatalf("drives alias: %v", err)
	}
	requireContains(t, out, "Moved sync folder drive-1 to Movies")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.SyncRoot, "Movies", "Movie.strm")); err != nil {
		t.Fatalf("sync folder not moved: %v", err)
	}

	if _, _, err := runCLI(t, env, "", "drives", "alias", "drive-2", "Movies"); services.ExitCode(err) != services.ExitUserError {
		t.Fatalf("expected duplicate alias user error, got %v", err)
	}

	out, _, err = runCLI(t, env, "", "drives", "active", "drive-2")
	if err != nil {
		t.Fatalf("drives active: %v", err)
	}
	requireContains(t, out, "svc on drive drive-2")
}

func TestDrivesFolderRejectsPathsOutsideSyncRoot(t *testing.T) {
	env := setupCLI(t)
	store := testsupport.MustOpenAccountStore(t, env.cfg)
	if err := store.Add(context.Background(), "drive-1", accounts.Account{Name: "svc"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	outside := filepath.Join(testsupport.BaseDir(env.cfg), "outside")
	testsupport.WriteFile(t, filepath.Join(outside, "keep.txt"), []byte("x"))

	if _, _, err := runCLI(t, env, "", "drives", "folder", "drive-1", "../outside"); services.ExitCode(err) != services.ExitUserError {
		t.Fatalf("expected user error for escaping folder, got %v", err)
	}
	drive, _, _ := store.Drive("drive-1")
	if drive.LocalPath != "" {
		t.Fatalf("escaping folder was stored: %q", drive.LocalPath)
	}

	_, err := moveSyncFolder(env.cfg.Paths.SyncRoot, accounts.AliasChange{Alias: "Movies", OldLocalPath: "../outside", NewLocalPath: "Movies"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation moving an outside folder, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outside, "keep.txt")); err != nil {
		t.Fatalf("outside folder was touched: %v", err)
	}
}

func TestAccountsValidateDeletesConfirmedFailures(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenServer.Close)

	env := setupCLI(t)
	env.cfg.Drive.TokenURL = tokenServer.URL
	env.writeConfig(t)

	ctx := context.Background()
	store := testsupport.MustOpenAccountStore(t, env.cfg)
	good := accounts.Account{Name: "good", Email: "good@project.iam.gserviceaccount.com", Key: testPrivateKey(t), Type: accounts.TypeService}
	broken := accounts.Account{Name: "broken", Email: "broken@project.iam.gserviceaccount.com", Key: "not a key", Type: accounts.TypeService}
	for _, account := range []accounts.Account{broken, good} {
		if err := store.Add(ctx, "drive-1", account); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	out, stderr, err := runCLI(t, env, "y\n", "accounts", "validate", "drive-1")
	if err != nil {
		t.Fatalf("accounts validate: %v", err)
	}
	requireContains(t, stderr, "[1/2] broken: failed")
	requireContains(t, stderr, "[2/2] good: ok")
	requireContains(t, out, "broken")

	list, err := store.Accounts("drive-1")
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(list) != 1 || list[0].Name != "good" || list[0].Expiry.IsZero() {
		t.Fatalf("unexpected accounts after validation: %#v", list)
	}
}

func TestListSearchAndSharedDrives(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"id":"v1","name":"Foo Bar.mkv","mimeType":"video/x-matroska"}]}`))
	})
	mux.HandleFunc("/drive/v3/drives", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"drives":[{"id":"sd-1","name":"Team Movies"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env := setupCLI(t)
	env.cfg.Drive.TokenURL = server.URL + "/token"
	env.cfg.Drive.APIEndpoint = server.URL + "/drive/v3/"
	env.writeConfig(t)
	store := testsupport.MustOpenAccountStore(t, env.cfg)
	svc := accounts.Account{Name: "svc", Email: "svc@project.iam.gserviceaccount.com", Key: testPrivateKey(t), Type: accounts.TypeService}
	if err := store.Add(context.Background(), "drive-1", svc); err != nil {
		t.Fatalf("Add: %v", err)
	}

	out, _, err := runCLI(t, env, "", "ls", "drive-1", "--search", "foo")
	if err != nil {
		t.Fatalf("ls --search: %v", err)
	}
	requireContains(t, out, "Foo Bar.mkv")

	if _, _, err := runCLI(t, env, "", "ls", "drive-1", "--starred"); err != nil {
		t.Fatalf("ls --starred: %v", err)
	}
	if len(queries) != 2 || queries[0] != "name contains 'foo' and trashed = false" || queries[1] != "starred = true and trashed = false" {
		t.Fatalf("unexpected drive queries %q", queries)
	}

	if _, _, err := runCLI(t, env, "", "ls", "drive-1", "--search", " "); services.ExitCode(err) != services.ExitUserError {
		t.Fatalf("expected user error for blank search, got %v", err)
	}

	out, _, err = runCLI(t, env, "", "drives", "shared", "drive-1")
	if err != nil {
		t.Fatalf("drives shared: %v", err)
	}
	requireContains(t, out, "Team Movies")
	requireContains(t, out, "sd-1")
}

func newTMDBServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNameResolvesAndCaches(t *testing.T) {
	tmdbServer := newTMDBServer(t, `{"results":[{"id":7,"title":"Foo Bar","release_date":"2000-05-01","vote_average":7.1,"vote_count":900}]}`)
	env := setupCLI(t, testsupport.WithTMDBBaseURL(tmdbServer.URL))

	out, _, err := runCLI(t, env, "", "name", "--file-name", "foo.bar.2000.mkv", "--title", "foo bar", "--year", "2000")
	if err != nil {
		t.Fatalf("name: %v", err)
	}
	requireContains(t, out, "Foo Bar (2000)")

	out, _, err = runCLI(t, env, "", "--json", "titles", "list")
	if err != nil {
		t.Fatalf("titles list: %v", err)
	}
	requireContains(t, out, `"title": "Foo Bar"`)

	out, _, err = runCLI(t, env, "", "--json", "name", "--file-name", "foo.bar.2000.mkv", "--title", "foo bar", "--year", "2000")
	if err != nil {
		t.Fatalf("cached name: %v", err)
	}
	requireContains(t, out, `"cached": true`)
}

func TestNameFallsBackToBasenameWhenUnresolved(t *testing.T) {
	tmdbServer := newTMDBServer(t, `{"results":[]}`)
	env := setupCLI(t, testsupport.WithTMDBBaseURL(tmdbServer.URL), testsupport.WithNaming(nil, []string{"extension"}))

	out, stderr, err := runCLI(t, env, "", "name", "--file-name", "home video.mp4", "--title", "home video")
	if err != nil {
		t.Fatalf("name: %v", err)
	}
	if strings.TrimSpace(out) != "home video [MP4]" {
		t.Fatalf("unexpected fallback name %q", out)
	}
	requireContains(t, stderr, "Title not identified")
}

func TestNameUsesCacheWithoutTMDBKey(t *testing.T) {
	tmdbServer := newTMDBServer(t, `{"results":[{"id":7,"title":"Foo Bar","release_date":"2000-05-01","vote_average":7.1,"vote_count":900}]}`)
	env := setupCLI(t, testsupport.WithTMDBBaseURL(tmdbServer.URL), testsupport.WithNaming(nil, []string{"extension"}))

	if _, _, err := runCLI(t, env, "", "name", "--file-name", "foo.bar.2000.mkv", "--title", "foo bar", "--year", "2000"); err != nil {
		t.Fatalf("seed name: %v", err)
	}

	env.cfg.TMDB.APIKey = ""
	env.writeConfig(t)

	out, _, err := runCLI(t, env, "", "--json", "name", "--file-name", "foo.bar.2000.mkv", "--title", "foo bar", "--year", "2000")
	if err != nil {
		t.Fatalf("cached name without key: %v", err)
	}
	requireContains(t, out, `"filename": "Foo Bar (2000)"`)
	requireContains(t, out, `"cached": true`)

	out, stderr, err := runCLI(t, env, "", "name", "--file-name", "home video.mp4", "--title", "home video")
	if err != nil {
		t.Fatalf("uncached name without key: %v", err)
	}
	if strings.TrimSpace(out) != "home video [MP4]" {
		t.Fatalf("unexpected fallback name %q", out)
	}
	requireContains(t, stderr, "Title not identified")
}

func TestSTRMCommand(t *testing.T) {
	env := setupCLI(t)

	out, _, err := runCLI(t, env, "", "strm", "--drive-id", "drive 1", "--file-id", "abc123",
		"--file-name", "clip.mkv", "--duration", "90", "--width", "1920")
	if err != nil {
		t.Fatalf("strm: %v", err)
	}
	want := "plugin://plugin.video.gdrive/?mode=video&video_duration=90&video_width=1920&drive_id=drive+1&file_id=abc123&encrypted=False"
	if strings.TrimSpace(out) != want {
		t.Fatalf("strm = %q, want %q", strings.TrimSpace(out), want)
	}

	if _, _, err := runCLI(t, env, "", "strm", "--file-name", "clip.mkv"); services.ExitCode(err) != services.ExitUserError {
		t.Fatalf("expected missing drive id user error, got %v", err)
	}
}

func TestSyncPostsToHelperServer(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	helper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotForm, _ = url.ParseQuery(string(body))
	}))
	t.Cleanup(helper.Close)

	env := setupCLI(t)
	parsed, err := url.Parse(helper.URL)
	if err != nil {
		t.Fatalf("parse helper url: %v", err)
	}
	port, _ := strconv.Atoi(parsed.Port())
	env.cfg.Playback.ServerPort = port
	env.writeConfig(t)

	out, _, err := runCLI(t, env, "", "sync", "drive-1", "folder-7", "--name", "Movies")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "Queued sync of Movies")
	if gotPath != "/add_sync_task" || gotForm.Get("folder_id") != "folder-7" || gotForm.Get("drive_id") != "drive-1" {
		t.Fatalf("unexpected request %s %v", gotPath, gotForm)
	}
}
