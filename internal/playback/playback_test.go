package playback_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"gdrive/internal/accounts"
	"gdrive/internal/gdrive"
	"gdrive/internal/playback"
	"gdrive/internal/services"
	"gdrive/internal/testsupport"
)

func TestPayloadEncodingKeepsOrder(t *testing.T) {
	tests := []struct {
		name    string
		payload playback.Payload
		want    string
	}{
		{
			name:    "sync folder",
			payload: playback.SyncPayload("drive-1", "folder-9", "Movies & Shows"),
			want:    "drive_id=drive-1&folder_id=folder-9&folder_name=Movies+%26+Shows",
		},
		{
			name:    "sync drive root",
			payload: playback.SyncPayload("drive-1", "", "My Drive"),
			want:    "drive_id=drive-1&folder_id=drive-1&folder_name=My+Drive",
		},
		{
			name:    "play original",
			payload: playback.PlayPayload(false, "https://h/files/abc?alt=media", "drive-1", "abc", ""),
			want:    "encrypted=False&url=https%3A%2F%2Fh%2Ffiles%2Fabc%3Falt%3Dmedia&driveid=drive-1&fileid=abc&transcoded=False",
		},
		{
			name:    "play transcoded",
			payload: playback.PlayPayload(true, "u", "d", "f", "720P"),
			want:    "encrypted=True&url=u&driveid=d&fileid=f&transcoded=720P",
		},
		{
			name:    "start player library item",
			payload: playback.StartPlayerPayload("42", "movie", true),
			want:    "dbid=42&dbtype=movie&widget=1&track=1",
		},
		{
			name:    "start player outside library",
			payload: playback.StartPlayerPayload("", "", true),
			want:    "dbid=0&dbtype=0&widget=0&track=0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payload.Encode(); got != tt.want {
				t.Fatalf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectStream(t *testing.T) {
	streams := []gdrive.Stream{
		{Resolution: "720P", URL: "u720"},
		{Resolution: "360P", URL: "u360"},
	}
	tests := []struct {
		name     string
		priority []string
		wantURL  string
		wantOK   bool
	}{
		{"first available", []string{"1080P", "720P", "Original"}, "u720", true},
		{"original ranks first", []string{"Original", "720P"}, "", false},
		{"original before available", []string{"1080P", "Original", "360P"}, "", false},
		{"nothing matches", []string{"1080P", "480P"}, "", false},
		{"case insensitive", []string{"360p"}, "u360", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream, ok := playback.SelectStream(streams, tt.priority)
			if ok != tt.wantOK || stream.URL != tt.wantURL {
				t.Fatalf("SelectStream() = %#v, %v; want %q, %v", stream, ok, tt.wantURL, tt.wantOK)
			}
		})
	}
	if got := playback.Options(streams); len(got) != 3 || got[0] != "Original" || got[2] != "360P" {
		t.Fatalf("unexpected options %v", got)
	}
}

type recordedPost struct {
	path string
	form url.Values
}

func newHelperServer(t *testing.T, status int) (*httptest.Server, func() []recordedPost) {
	t.Helper()
	var mu sync.Mutex
	var posts []recordedPost
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		if err != nil {
			t.Errorf("parse body: %v", err)
		}
		mu.Lock()
		posts = append(posts, recordedPost{path: r.URL.Path, form: form})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, func() []recordedPost {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPost(nil), posts...)
	}
}

func TestClientPostErrors(t *testing.T) {
	server, _ := newHelperServer(t, http.StatusInternalServerError)
	client := playback.NewClient(testsupport.NewConfig(t), nil, playback.WithBaseURL(server.URL))
	if err := client.Post(context.Background(), playback.PathSyncTask, playback.SyncPayload("d", "f", "n")); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)
	client = playback.NewClient(nil, nil,
		playback.WithBaseURL(slow.URL),
		playback.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	if err := client.Post(context.Background(), playback.PathPlayURL, playback.PlayPayload(false, "u", "d", "f", "")); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

type stubAccounts struct {
	driveID string
	err     error
}

func (s stubAccounts) Acquire(_ context.Context, driveID string) (accounts.DriveAccount, error) {
	if s.err != nil {
		return accounts.DriveAccount{}, s.err
	}
	if s.driveID != "" {
		driveID = s.driveID
	}
	return accounts.DriveAccount{DriveID: driveID, Account: accounts.Account{Name: "svc"}}, nil
}

type stubStreams struct {
	streams []gdrive.Stream
	err     error
	calls   int
}

func (s *stubStreams) DownloadURL(fileID string) string {
	return "https://drive/" + fileID
}

func (s *stubStreams) Streams(context.Context, accounts.Account, string) ([]gdrive.Stream, error) {
	s.calls++
	return s.streams, s.err
}

func TestPlayUsesPriorityAndNotifiesHelper(t *testing.T) {
	server, posts := newHelperServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithPlayback([]string{"1080P", "720P", "Original"}, false))
	client := playback.NewClient(cfg, nil, playback.WithBaseURL(server.URL))
	streams := &stubStreams{streams: []gdrive.Stream{{Resolution: "720P", URL: "https://t/720"}}}
	player := playback.NewPlayer(cfg, stubAccounts{}, streams, client, nil)

	ok, err := player.Play(context.Background(), playback.Request{DriveID: "drive-1", FileID: "abc", DBID: "7", DBType: "episode"}, nil)
	if err != nil || !ok {
		t.Fatalf("Play: ok=%v err=%v", ok, err)
	}
	got := posts()
	if len(got) != 2 || got[0].path != playback.PathPlayURL || got[1].path != playback.PathStartPlayer {
		t.Fatalf("unexpected posts %#v", got)
	}
	if got[0].form.Get("url") != "https://t/720" || got[0].form.Get("transcoded") != "720P" || got[0].form.Get("driveid") != "drive-1" {
		t.Fatalf("unexpected play payload %v", got[0].form)
	}
	if got[1].form.Get("dbid") != "7" || got[1].form.Get("track") != "1" {
		t.Fatalf("unexpected start payload %v", got[1].form)
	}
}

func TestPlanPlaysOriginalForEncryptedAndManualDrive(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPlayback([]string{"720P"}, false), testsupport.WithCrypto("secret", "pepper"))
	streams := &stubStreams{streams: []gdrive.Stream{{Resolution: "720P", URL: "https://t/720"}}}
	player := playback.NewPlayer(cfg, stubAccounts{driveID: "playback-drive"}, streams, nil, nil)

	payload, ok, err := player.Plan(context.Background(), playback.Request{DriveID: "drive-1", FileID: "abc", Encrypted: true}, nil)
	if err != nil || !ok {
		t.Fatalf("Plan: ok=%v err=%v", ok, err)
	}
	if streams.calls != 0 {
		t.Fatalf("encrypted file must not look up streams, got %d calls", streams.calls)
	}
	if payload.Get("url") != "https://drive/abc" || payload.Get("encrypted") != "True" || payload.Get("driveid") != "playback-drive" {
		t.Fatalf("unexpected payload %q", payload.Encode())
	}
}

func TestPlanRefusesEncryptedWithoutCryptoSettings(t *testing.T) {
	for _, opt := range []testsupport.ConfigOption{testsupport.WithCrypto("", ""), testsupport.WithCrypto("secret", "")} {
		cfg := testsupport.NewConfig(t, opt)
		streams := &stubStreams{}
		player := playback.NewPlayer(cfg, stubAccounts{}, streams, nil, nil)

		_, ok, err := player.Plan(context.Background(), playback.Request{DriveID: "drive-1", FileID: "abc", Encrypted: true}, nil)
		if !errors.Is(err, services.ErrValidation) || ok {
			t.Fatalf("expected ErrValidation, ok=%v err=%v", ok, err)
		}
	}
}

func TestPlanPromptsForResolution(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPlayback([]string{"Original"}, true))
	streams := &stubStreams{streams: []gdrive.Stream{
		{Resolution: "1080P", URL: "https://t/1080"},
		{Resolution: "360P", URL: "https://t/360"},
	}}
	player := playback.NewPlayer(cfg, stubAccounts{}, streams, nil, nil)
	req := playback.Request{DriveID: "drive-1", FileID: "abc"}

	var offered []string
	payload, ok, err := player.Plan(context.Background(), req, func(options []string) (int, bool) {
		offered = options
		return 2, true
	})
	if err != nil || !ok {
		t.Fatalf("Plan: ok=%v err=%v", ok, err)
	}
	if len(offered) != 3 || offered[0] != "Original" {
		t.Fatalf("unexpected options %v", offered)
	}
	if payload.Get("url") != "https://t/360" || payload.Get("transcoded") != "360P" {
		t.Fatalf("unexpected payload %q", payload.Encode())
	}

	_, ok, err = player.Plan(context.Background(), req, func([]string) (int, bool) { return 0, false })
	if err != nil || ok {
		t.Fatalf("expected cancelled plan, ok=%v err=%v", ok, err)
	}
}

func TestPlanFallsBackToOriginalWhenStreamsFail(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPlayback([]string{"720P"}, false))
	streams := &stubStreams{err: errors.New("not processed")}
	player := playback.NewPlayer(cfg, stubAccounts{}, streams, nil, nil)

	payload, ok, err := player.Plan(context.Background(), playback.Request{DriveID: "drive-1", FileID: "abc"}, nil)
	if err != nil || !ok {
		t.Fatalf("Plan: ok=%v err=%v", ok, err)
	}
	if payload.Get("url") != "https://drive/abc" || payload.Get("transcoded") != "False" {
		t.Fatalf("unexpected payload %q", payload.Encode())
	}
}

func TestPlanPropagatesAccountErrors(t *testing.T) {
	player := playback.NewPlayer(nil, stubAccounts{err: services.ErrRefreshFailed}, &stubStreams{}, nil, nil)
	if _, _, err := player.Plan(context.Background(), playback.Request{DriveID: "d", FileID: "f"}, nil); !errors.Is(err, services.ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if _, _, err := player.Plan(context.Background(), playback.Request{DriveID: "d"}, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSyncPostsTask(t *testing.T) {
	server, posts := newHelperServer(t, http.StatusOK)
	client := playback.NewClient(nil, nil, playback.WithBaseURL(server.URL))
	player := playback.NewPlayer(nil, stubAccounts{}, &stubStreams{}, client, nil)

	if err := player.Sync(context.Background(), "drive-1", "folder-2", "Movies"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got := posts()
	if len(got) != 1 || got[0].path != playback.PathSyncTask || got[0].form.Get("folder_name") != "Movies" {
		t.Fatalf("unexpected posts %#v", got)
	}
}
