package gdrive

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"

	"gdrive/internal/accounts"
	"gdrive/internal/logging"
	"gdrive/internal/media"
	"gdrive/internal/services"
)

const folderMimeType = "application/vnd.google-apps.folder"

const listFields = "nextPageToken, files(id, name, mimeType, fileExtension, videoMediaMetadata(durationMillis, width, height))"

// Entry is one child of a listed folder.
type Entry struct {
	ID        string
	Name      string
	MimeType  string
	Extension string
	// DurationMillis, Width and Height are zero when Drive has not
	// processed the file as a video.
	DurationMillis int64
	Width          int
	Height         int
}

// Folder reports whether the entry is a folder.
func (e Entry) Folder() bool {
	return e.MimeType == folderMimeType
}

// Video reports whether the entry carries video metadata or a video mime type.
func (e Entry) Video() bool {
	return strings.HasPrefix(e.MimeType, "video/") || e.DurationMillis > 0
}

// Metadata returns the naming metadata Drive reported for the entry.
func (e Entry) Metadata() media.Metadata {
	return media.VideoMetadata(float64(e.DurationMillis)/1000, e.Width, e.Height)
}

// ListOptions narrows a listing. Search, SharedWithMe and Starred replace the
// parent filter and look across everything the account can see.
type ListOptions struct {
	Search       string
	SharedWithMe bool
	Starred      bool
	// SharedDriveID scopes the listing to one shared drive.
	SharedDriveID string
}

// SharedDrive is a shared drive the account is a member of.
type SharedDrive struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListDirectory returns the non-trashed children of folderID. Folders sort
// before files, each group by name as Drive returns it.
func (c *Client) ListDirectory(ctx context.Context, account accounts.Account, folderID string) ([]Entry, error) {
	return c.List(ctx, account, folderID, ListOptions{})
}

// SearchDirectory returns every non-trashed file whose name contains text.
func (c *Client) SearchDirectory(ctx context.Context, account accounts.Account, text string) ([]Entry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "gdrive", "search", "search text is empty", nil)
	}
	return c.List(ctx, account, "", ListOptions{Search: text})
}

// List runs a files.list query for folderID filtered by opts. An empty
// folderID lists the shared drive root when one is given, else "root".
func (c *Client) List(ctx context.Context, account accounts.Account, folderID string, opts ListOptions) ([]Entry, error) {
	folderID = strings.TrimSpace(folderID)
	opts.SharedDriveID = strings.TrimSpace(opts.SharedDriveID)
	if folderID == "" {
		folderID = "root"
		if opts.SharedDriveID != "" {
			folderID = opts.SharedDriveID
		}
	}
	service, err := c.service(ctx, account)
	if err != nil {
		return nil, err
	}

	query := listQuery(folderID, opts)
	call := service.Files.List().
		Q(query).
		Fields(listFields).
		OrderBy("folder,name").
		PageSize(1000).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)
	if opts.SharedDriveID != "" {
		call = call.Corpora("drive").DriveId(opts.SharedDriveID)
	}

	var entries []Entry
	err = call.Pages(ctx, func(page *drive.FileList) error {
		for _, file := range page.Files {
			entries = append(entries, entryFromFile(file))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", query, err)
	}
	c.logger.Debug("folder listed",
		logging.String(logging.FieldAccount, account.Name),
		logging.String("query", query),
		logging.Int("entries", len(entries)))
	return entries, nil
}

// SharedDrives lists the shared drives visible to account.
func (c *Client) SharedDrives(ctx context.Context, account accounts.Account) ([]SharedDrive, error) {
	service, err := c.service(ctx, account)
	if err != nil {
		return nil, err
	}
	var drives []SharedDrive
	err = service.Drives.List().
		Fields("nextPageToken, drives(id, name)").
		PageSize(100).
		Pages(ctx, func(page *drive.DriveList) error {
			for _, d := range page.Drives {
				drives = append(drives, SharedDrive{ID: d.Id, Name: d.Name})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list shared drives: %w", err)
	}
	return drives, nil
}

func (c *Client) service(ctx context.Context, account accounts.Account) (*drive.Service, error) {
	httpClient, err := c.authorizedClient(ctx, account)
	if err != nil {
		return nil, err
	}
	service, err := drive.NewService(ctx, c.serviceOptions(httpClient)...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return service, nil
}

func listQuery(folderID string, opts ListOptions) string {
	var terms []string
	if text := strings.TrimSpace(opts.Search); text != "" {
		terms = append(terms, fmt.Sprintf("name contains '%s'", quote(text)))
	}
	if opts.SharedWithMe {
		terms = append(terms, "sharedWithMe = true")
	}
	if opts.Starred {
		terms = append(terms, "starred = true")
	}
	if len(terms) == 0 {
		terms = append(terms, fmt.Sprintf("'%s' in parents", quote(folderID)))
	}
	return strings.Join(append(terms, "trashed = false"), " and ")
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(value string) string {
	return queryEscaper.Replace(value)
}

func entryFromFile(file *drive.File) Entry {
	entry := Entry{
		ID:        file.Id,
		Name:      file.Name,
		MimeType:  file.MimeType,
		Extension: file.FileExtension,
	}
	if meta := file.VideoMediaMetadata; meta != nil {
		entry.DurationMillis = meta.DurationMillis
		entry.Width = int(meta.Width)
		entry.Height = int(meta.Height)
	}
	return entry
}
