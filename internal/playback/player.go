package playback

import (
	"context"
	"log/slog"

	"gdrive/internal/accounts"
	"gdrive/internal/config"
	"gdrive/internal/gdrive"
	"gdrive/internal/logging"
	"gdrive/internal/services"
)

// AccountSource resolves and refreshes the account used for a drive.
type AccountSource interface {
	Acquire(ctx context.Context, driveID string) (accounts.DriveAccount, error)
}

// StreamSource resolves download and transcoded stream URLs.
type StreamSource interface {
	DownloadURL(fileID string) string
	Streams(ctx context.Context, account accounts.Account, fileID string) ([]gdrive.Stream, error)
}

// ChooseFunc asks the user to pick one of options. It returns false when the
// user cancels.
type ChooseFunc func(options []string) (int, bool)

// Request identifies the file to play and the library item it belongs to.
type Request struct {
	DriveID   string
	FileID    string
	Encrypted bool
	DBID      string
	DBType    string
	Widget    bool
}

// Player resolves a playable URL and hands it to the helper server.
type Player struct {
	accounts AccountSource
	streams  StreamSource
	client   *Client
	priority []string
	prompt   bool
	crypto   bool
	logger   *slog.Logger
}

// NewPlayer builds a player using the resolution preferences of cfg.
func NewPlayer(cfg *config.Config, accountSource AccountSource, streams StreamSource, client *Client, logger *slog.Logger) *Player {
	p := &Player{
		accounts: accountSource,
		streams:  streams,
		client:   client,
		priority: []string{gdrive.ResolutionOriginal},
		logger:   logging.NewComponentLogger(logger, "player"),
	}
	if cfg != nil {
		if len(cfg.Playback.ResolutionPriority) > 0 {
			p.priority = append([]string(nil), cfg.Playback.ResolutionPriority...)
		}
		p.prompt = cfg.Playback.ResolutionPrompt
		p.crypto = cfg.CryptoConfigured()
	}
	return p
}

// Plan builds the play_url payload for req. Encrypted files always play the
// original and need the crypto settings. It returns false when the user
// cancelled the resolution prompt.
func (p *Player) Plan(ctx context.Context, req Request, choose ChooseFunc) (Payload, bool, error) {
	if req.FileID == "" {
		return Payload{}, false, services.Wrap(services.ErrValidation, "playback", "plan", "file id is required", nil)
	}
	if req.Encrypted && !p.crypto {
		return Payload{}, false, services.Wrap(services.ErrValidation, "playback", "plan",
			"encrypted file needs playback.crypto_password and playback.crypto_salt", nil)
	}
	active, err := p.accounts.Acquire(ctx, req.DriveID)
	if err != nil {
		return Payload{}, false, err
	}
	streamURL := p.streams.DownloadURL(req.FileID)
	transcoded := ""

	if !req.Encrypted {
		switch {
		case p.prompt && choose != nil:
			streams, err := p.streams.Streams(ctx, active.Account, req.FileID)
			if err != nil {
				return Payload{}, false, services.Wrap(services.ErrTransient, "playback", "plan", "list streams", err)
			}
			if len(streams) > 0 {
				idx, ok := choose(Options(streams))
				if !ok {
					return Payload{}, false, nil
				}
				if idx > 0 && idx <= len(streams) {
					streamURL = streams[idx-1].URL
					transcoded = streams[idx-1].Resolution
				}
			}
		case len(p.priority) > 0 && p.priority[0] != gdrive.ResolutionOriginal:
			streams, err := p.streams.Streams(ctx, active.Account, req.FileID)
			if err != nil {
				logging.WarnWithContext(logging.WithContext(ctx, p.logger), "stream lookup failed, playing original", "stream_lookup_failed",
					logging.String(logging.FieldDriveID, active.DriveID),
					logging.String("file_id", req.FileID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that the file finished processing on Drive"),
					logging.String(logging.FieldImpact, "original file plays instead of a transcoded stream"))
			} else if stream, ok := SelectStream(streams, p.priority); ok {
				streamURL = stream.URL
				transcoded = stream.Resolution
			}
		}
	}

	return PlayPayload(req.Encrypted, streamURL, active.DriveID, req.FileID, transcoded), true, nil
}

// Play resolves req and notifies the helper server. It reports false when
// the user cancelled.
func (p *Player) Play(ctx context.Context, req Request, choose ChooseFunc) (bool, error) {
	payload, ok, err := p.Plan(ctx, req, choose)
	if err != nil || !ok {
		return false, err
	}
	if err := p.client.Post(ctx, PathPlayURL, payload); err != nil {
		return false, err
	}
	if err := p.client.Post(ctx, PathStartPlayer, StartPlayerPayload(req.DBID, req.DBType, req.Widget)); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "player start failed after stream was handed over", "player_start_failed",
			logging.String("file_id", req.FileID),
			logging.String(logging.FieldErrorHint, "check that the media center helper server is still running"),
			logging.Error(err))
		return false, err
	}
	p.logger.Info("playback started",
		logging.String(logging.FieldDriveID, payload.Get("driveid")),
		logging.String("file_id", req.FileID),
		logging.String("transcoded", payload.Get("transcoded")))
	return true, nil
}

// Sync asks the helper server to sync a folder.
func (p *Player) Sync(ctx context.Context, driveID, folderID, folderName string) error {
	if driveID == "" {
		return services.Wrap(services.ErrValidation, "playback", "sync", "drive id is required", nil)
	}
	if err := p.client.Post(ctx, PathSyncTask, SyncPayload(driveID, folderID, folderName)); err != nil {
		return err
	}
	p.logger.Info("sync task queued",
		logging.String(logging.FieldDriveID, driveID),
		logging.String("folder_id", folderID),
		logging.String("folder_name", folderName))
	return nil
}
