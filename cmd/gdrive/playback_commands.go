package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gdrive/internal/playback"
	"gdrive/internal/services"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var req playback.Request
	cmd := &cobra.Command{
		Use:   "play <drive-id> <file-id>",
		Short: "Resolve a stream and hand it to the local helper server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.DriveID, req.FileID = args[0], args[1]
			player, err := ctx.player()
			if err != nil {
				return err
			}
			prompt := newPrompter(cmd)
			choose := func(options []string) (int, bool) {
				return prompt.choose("Select a resolution:", options)
			}
			runCtx := services.WithDriveID(ctx.runContext(cmd), req.DriveID)
			started, err := player.Play(runCtx, req, choose)
			if err != nil {
				return err
			}
			if !started {
				fmt.Fprintln(cmd.OutOrStdout(), "Playback cancelled")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Playing %s\n", req.FileID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&req.Encrypted, "encrypted", false, "File is encrypted")
	cmd.Flags().StringVar(&req.DBID, "dbid", "", "Library item id")
	cmd.Flags().StringVar(&req.DBType, "dbtype", "", "Library item type")
	cmd.Flags().BoolVar(&req.Widget, "widget", false, "Playback was started from a widget")
	return cmd
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var folderName string
	cmd := &cobra.Command{
		Use:   "sync <drive-id> [folder-id]",
		Short: "Queue a folder for STRM sync on the local helper server",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			driveID, folderID := args[0], ""
			if len(args) == 2 {
				folderID = args[1]
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			player := playback.NewPlayer(cfg, nil, nil, playback.NewClient(cfg, ctx.loggerValue()), ctx.loggerValue())
			if err := player.Sync(services.WithDriveID(ctx.runContext(cmd), driveID), driveID, folderID, folderName); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued sync of %s\n", displayFolder(folderID, folderName, driveID))
			return nil
		},
	}
	cmd.Flags().StringVar(&folderName, "name", "", "Local folder name for the synced files")
	return cmd
}

func displayFolder(folderID, folderName, driveID string) string {
	switch {
	case folderName != "":
		return folderName
	case folderID != "":
		return folderID
	default:
		return driveID
	}
}
