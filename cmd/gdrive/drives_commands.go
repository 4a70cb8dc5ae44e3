package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gdrive/internal/accounts"
	"gdrive/internal/services"
)

func newDrivesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drives",
		Short: "Manage drives and their aliases",
	}
	cmd.AddCommand(newDrivesListCommand(ctx))
	cmd.AddCommand(newDrivesAliasCommand(ctx))
	cmd.AddCommand(newDrivesFolderCommand(ctx))
	cmd.AddCommand(newDrivesDeleteCommand(ctx))
	cmd.AddCommand(newDrivesActiveCommand(ctx))
	cmd.AddCommand(newDrivesSharedCommand(ctx))
	return cmd
}

type driveView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Alias     string `json:"alias,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
	Accounts  int    `json:"accounts"`
	Browsable bool   `json:"browsable"`
}

func newDrivesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List drives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			drives, err := store.Drives()
			if err != nil {
				return err
			}
			views := make([]driveView, 0, len(drives))
			for _, drive := range drives {
				views = append(views, driveView{
					ID:        drive.ID,
					Name:      drive.DisplayName(),
					Alias:     drive.Alias,
					LocalPath: drive.LocalPath,
					Accounts:  len(drive.Accounts),
					Browsable: drive.Browsable(),
				})
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No drives registered")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.ID, v.Name, v.LocalPath, strconv.Itoa(v.Accounts), yesNo(v.Browsable)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Sync folder", "Accounts", "Browsable"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}

func newDrivesAliasCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <drive-id> <alias>",
		Short: "Give a drive a unique friendly name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			change, err := store.SetAlias(ctx.runContext(cmd), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Drive %s is now %s\n", args[0], change.Alias)
			if change.FolderMoved() {
				moved, err := moveSyncFolder(ctx.configValue().Paths.SyncRoot, change)
				if err != nil {
					return err
				}
				if moved {
					fmt.Fprintf(out, "Moved sync folder %s to %s\n", change.OldLocalPath, change.NewLocalPath)
				}
			}
			return nil
		},
	}
}

// moveSyncFolder renames the drive's folder under syncRoot to follow its new
// alias. A folder that was never synced, or no sync root, is not an error.
func moveSyncFolder(syncRoot string, change accounts.AliasChange) (bool, error) {
	if syncRoot == "" {
		return false, nil
	}
	for _, p := range []string{change.OldLocalPath, change.NewLocalPath} {
		if !accounts.IsLocalPath(p) {
			return false, services.Wrap(services.ErrValidation, "cli", "move sync folder",
				fmt.Sprintf("%q is not a folder inside %s", p, syncRoot), nil)
		}
	}
	oldPath := filepath.Join(syncRoot, change.OldLocalPath)
	newPath := filepath.Join(syncRoot, change.NewLocalPath)
	if _, err := os.Stat(oldPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrPersistence, "cli", "move sync folder", oldPath, err)
	}
	if _, err := os.Stat(newPath); err == nil {
		return false, services.Wrap(services.ErrValidation, "cli", "move sync folder", fmt.Sprintf("%s already exists", newPath), nil)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return false, services.Wrap(services.ErrPersistence, "cli", "move sync folder", oldPath, err)
	}
	return true, nil
}

func newDrivesFolderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "folder <drive-id> <folder>",
		Short: "Set the folder a drive syncs into, relative to the sync root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			if err := store.SetLocalPath(ctx.runContext(cmd), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Drive %s syncs into %s\n", args[0], filepath.Join(ctx.configValue().Paths.SyncRoot, args[1]))
			return nil
		},
	}
}

func newDrivesDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <drive-id>",
		Short: "Delete a drive together with all of its accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Delete drive %s and all of its accounts?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted")
					return nil
				}
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			if err := store.DeleteDrive(ctx.runContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted drive %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")
	return cmd
}

func newDrivesActiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "active <drive-id>",
		Short: "Show which account playback on a drive would use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := ctx.selector()
			if err != nil {
				return err
			}
			active, err := selector.ResolveActive(args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, newAccountView(active.DriveID, 0, active.Account, time.Now()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s on drive %s\n", active.Account.DisplayName(), active.DriveID)
			return nil
		},
	}
}

func newDrivesSharedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shared <drive-id>",
		Short: "List the shared drives reachable from a drive's accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driveID := args[0]
			selector, err := ctx.selector()
			if err != nil {
				return err
			}
			runCtx := services.WithDriveID(ctx.runContext(cmd), driveID)
			active, err := selector.Acquire(runCtx, driveID)
			if err != nil {
				return err
			}
			shared, err := ctx.driveClient().SharedDrives(runCtx, active.Account)
			if err != nil {
				return services.Wrap(services.ErrTransient, "cli", "list shared drives", driveID, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, shared)
			}
			if len(shared) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No shared drives")
				return nil
			}
			rows := make([][]string, 0, len(shared))
			for _, d := range shared {
				rows = append(rows, []string{d.Name, d.ID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "ID"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}
