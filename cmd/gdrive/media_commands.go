package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gdrive/internal/gdrive"
	"gdrive/internal/media"
	"gdrive/internal/services"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var opts gdrive.ListOptions
	cmd := &cobra.Command{
		Use:   "ls <drive-id> [folder-id]",
		Short: "List a drive folder, search it, or show shared and starred files",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			driveID := args[0]
			folderID := ""
			if len(args) == 2 {
				folderID = args[1]
			} else if opts.SharedDriveID == "" {
				folderID = driveID
			}
			if cmd.Flags().Changed("search") && strings.TrimSpace(opts.Search) == "" {
				return services.Wrap(services.ErrValidation, "cli", "list folder", "--search needs text", nil)
			}
			selector, err := ctx.selector()
			if err != nil {
				return err
			}
			runCtx := services.WithDriveID(ctx.runContext(cmd), driveID)
			active, err := selector.Acquire(runCtx, driveID)
			if err != nil {
				return err
			}
			entries, err := ctx.driveClient().List(runCtx, active.Account, folderID, opts)
			if err != nil {
				return services.Wrap(services.ErrTransient, "cli", "list folder", folderID, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Folder is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				kind, duration, resolution := "file", "", ""
				switch {
				case entry.Folder():
					kind = "folder"
				case entry.Video():
					kind = "video"
					if entry.DurationMillis > 0 {
						duration = media.SecondsToHMS(int(entry.DurationMillis / 1000))
					}
					if entry.Width > 0 && entry.Height > 0 {
						resolution = fmt.Sprintf("%dx%d", entry.Width, entry.Height)
					}
				}
				rows = append(rows, []string{entry.Name, kind, duration, resolution, entry.ID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Type", "Duration", "Resolution", "ID"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.Search, "search", "", "List files whose name contains this text")
	flags.BoolVar(&opts.SharedWithMe, "shared-with-me", false, "List files shared with the account")
	flags.BoolVar(&opts.Starred, "starred", false, "List starred files")
	flags.StringVar(&opts.SharedDriveID, "shared-drive", "", "Browse a shared drive (see 'drives shared')")
	return cmd
}

// itemFlags collects the remote file and scraped video fields naming needs.
type itemFlags struct {
	kind      string
	fileID    string
	fileName  string
	encrypted bool
	title     string
	year      string
	language  string
	season    int
	episodes  []int
	duration  float64
	width     int
	height    int
}

func (f *itemFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.kind, "kind", string(media.KindMovie), "Media kind: movie or episode")
	flags.StringVar(&f.fileID, "file-id", "", "Remote file identifier")
	flags.StringVar(&f.fileName, "file-name", "", "Remote file name")
	flags.BoolVar(&f.encrypted, "encrypted", false, "File is encrypted")
	flags.StringVar(&f.title, "title", "", "Scraped title")
	flags.StringVar(&f.year, "year", "", "Scraped year")
	flags.StringVar(&f.language, "language", "", "Audio language")
	flags.IntVar(&f.season, "season", 0, "Season number (episodes)")
	flags.IntSliceVar(&f.episodes, "episode", nil, "Episode number, repeat for multi-episode files")
	flags.Float64Var(&f.duration, "duration", 0, "Duration in seconds")
	flags.IntVar(&f.width, "width", 0, "Video width in pixels")
	flags.IntVar(&f.height, "height", 0, "Video height in pixels")
	_ = cmd.MarkFlagRequired("file-name")
}

func (f *itemFlags) item(ctx *commandContext) (*media.Item, error) {
	file := media.File{ID: f.fileID, Name: f.fileName, Encrypted: f.encrypted}
	video := media.Video{
		Title:    f.title,
		Year:     f.year,
		Language: f.language,
		Season:   f.season,
		Episodes: f.episodes,
	}
	metadata := media.VideoMetadata(f.duration, f.width, f.height)
	return media.NewItem(media.Kind(strings.ToLower(strings.TrimSpace(f.kind))), file, video, metadata, ctx.configValue().Naming)
}

type nameView struct {
	Filename   string `json:"filename"`
	Basename   string `json:"basename"`
	Title      string `json:"title,omitempty"`
	Year       string `json:"year,omitempty"`
	Cached     bool   `json:"cached"`
	Unresolved bool   `json:"unresolved"`
}

func newNameCommand(ctx *commandContext) *cobra.Command {
	var flags itemFlags
	cmd := &cobra.Command{
		Use:   "name",
		Short: "Resolve the canonical filename of a remote video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := flags.item(ctx)
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd)
			cache, err := ctx.openTitleCache(runCtx)
			if err != nil {
				return err
			}
			defer cache.Close()
			view := nameView{Basename: item.Basename()}
			resolved, err := item.FormatName(runCtx, cache, ctx.titleResolver())
			switch {
			case err == nil:
				view.Filename = resolved.Filename
				view.Title = resolved.Title
				view.Year = resolved.Year
				view.Cached = resolved.Cached
			case errors.Is(err, services.ErrUnresolvedTitle):
				view.Filename = view.Basename
				view.Unresolved = true
			default:
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, view.Filename)
			if view.Unresolved {
				fmt.Fprintln(cmd.ErrOrStderr(), "Title not identified; using the decorated remote name")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newSTRMCommand(ctx *commandContext) *cobra.Command {
	var flags itemFlags
	var driveID string
	cmd := &cobra.Command{
		Use:   "strm",
		Short: "Print the STRM playback link for a remote video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(driveID) == "" {
				return services.Wrap(services.ErrValidation, "cli", "strm", "--drive-id is required", nil)
			}
			item, err := flags.item(ctx)
			if err != nil {
				return err
			}
			payload := item.STRMContents(driveID)
			if ctx.jsonOutput() {
				meta, err := media.ParseSTRM(payload)
				if err != nil {
					return err
				}
				fields := make(map[string]string, meta.Len())
				for _, key := range meta.Keys() {
					fields[key], _ = meta.Get(key)
				}
				return writeJSON(cmd, map[string]any{"strm": payload, "fields": fields, "basename": item.Basename() + ".strm"})
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&driveID, "drive-id", "", "Drive the file belongs to")
	return cmd
}
