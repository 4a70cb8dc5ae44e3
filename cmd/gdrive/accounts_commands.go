package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gdrive/internal/accounts"
	"gdrive/internal/services"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage stored drive accounts",
	}
	cmd.AddCommand(newAccountsListCommand(ctx))
	cmd.AddCommand(newAccountsAddCommand(ctx))
	cmd.AddCommand(newAccountsRenameCommand(ctx))
	cmd.AddCommand(newAccountsDeleteCommand(ctx))
	cmd.AddCommand(newAccountsValidateCommand(ctx))
	cmd.AddCommand(newAccountsImportCommand(ctx))
	cmd.AddCommand(newAccountsExportCommand(ctx))
	return cmd
}

type accountView struct {
	DriveID string    `json:"drive_id"`
	Index   int       `json:"index,omitempty"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	Type    string    `json:"type,omitempty"`
	Expiry  time.Time `json:"expiry"`
	Expired bool      `json:"expired"`
}

// newAccountView omits the private key so listings never print secrets.
func newAccountView(driveID string, index int, account accounts.Account, now time.Time) accountView {
	return accountView{
		DriveID: driveID,
		Index:   index,
		Name:    account.Name,
		Email:   account.Email,
		Type:    string(account.Type),
		Expiry:  account.Expiry,
		Expired: account.Expired(now),
	}
}

func newAccountsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [drive-id]",
		Short: "List accounts, optionally for one drive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			drives, err := store.Drives()
			if err != nil {
				return err
			}
			now := time.Now()
			views := make([]accountView, 0)
			for _, drive := range drives {
				if len(args) == 1 && drive.ID != args[0] {
					continue
				}
				for i, account := range drive.Accounts {
					views = append(views, newAccountView(drive.ID, i+1, account, now))
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts registered")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				expiry := "-"
				if !v.Expiry.IsZero() {
					expiry = v.Expiry.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{v.DriveID, strconv.Itoa(v.Index), v.Name, v.Email, v.Type, expiry, yesNo(v.Expired)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Drive", "#", "Name", "Email", "Type", "Expiry", "Expired"},
				rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newAccountsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <drive-id> <name> <key-file>",
		Short: "Register a service account from its JSON key file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyJSON, err := os.ReadFile(args[2])
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "read key file", args[2], err)
			}
			selector, err := ctx.selector()
			if err != nil {
				return err
			}
			account, err := selector.RegisterServiceAccount(ctx.runContext(cmd), args[0], args[1], keyJSON)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, newAccountView(args[0], 0, account, time.Now()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s) on drive %s\n", account.Name, account.Email, args[0])
			return nil
		},
	}
}

func newAccountsRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <drive-id> <index> <new-name>",
		Short: "Rename the account at a 1-based position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil || index < 1 {
				return services.Wrap(services.ErrValidation, "cli", "rename", fmt.Sprintf("invalid account index %q", args[1]), nil)
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			if err := store.Rename(ctx.runContext(cmd), args[0], index-1, args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed account %d on drive %s to %s\n", index, args[0], strings.TrimSpace(args[2]))
			return nil
		},
	}
}

func newAccountsDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <drive-id> <name>...",
		Short: "Delete one or more accounts from a drive",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			driveID, names := args[0], args[1:]
			if !yes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Delete %s from drive %s?", strings.Join(names, ", "), driveID))
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
			runCtx := ctx.runContext(cmd)
			if len(names) == 1 {
				if err := store.Delete(runCtx, driveID, names[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", names[0])
				return nil
			}
			removed, err := store.DeleteMany(runCtx, driveID, names)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d accounts\n", removed, len(names))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")
	return cmd
}

type validationView struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

func newAccountsValidateCommand(ctx *commandContext) *cobra.Command {
	var deleteFailed bool
	cmd := &cobra.Command{
		Use:   "validate <drive-id>",
		Short: "Refresh every account of a drive and offer to remove broken ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driveID := args[0]
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			selector := accounts.NewSelector(ctx.configValue(), store, ctx.driveClient(), ctx.loggerValue())
			runCtx := services.WithDriveID(ctx.runContext(cmd), driveID)
			progressOut := cmd.ErrOrStderr()

			results, err := selector.ValidateAll(runCtx, driveID, func(done, total int, result accounts.ValidationResult) {
				status := "ok"
				if !result.OK() {
					status = "failed"
				}
				fmt.Fprintf(progressOut, "[%d/%d] %s: %s\n", done, total, result.Account.Name, status)
			})
			if err != nil {
				return err
			}

			views := make([]validationView, 0, len(results))
			prompt := newPrompter(cmd)
			for _, result := range results {
				view := validationView{Index: result.Index + 1, Name: result.Account.Name, OK: result.OK()}
				if !result.OK() {
					view.Error = result.Err.Error()
					remove := deleteFailed
					if !remove {
						remove, err = prompt.confirm(fmt.Sprintf("%s failed to refresh. Delete it?", result.Account.Name))
						if err != nil {
							return err
						}
					}
					if remove {
						if err := store.Delete(runCtx, driveID, result.Account.Name); err != nil {
							return err
						}
						view.Deleted = true
					}
				}
				views = append(views, view)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			failed := len(accounts.Failures(results))
			if failed == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "All %d accounts are valid\n", len(results))
				return nil
			}
			rows := make([][]string, 0, failed)
			for _, v := range views {
				if v.OK {
					continue
				}
				rows = append(rows, []string{strconv.Itoa(v.Index), v.Name, yesNo(v.Deleted), v.Error})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Name", "Deleted", "Error"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteFailed, "delete-failed", false, "Delete accounts that fail to refresh without asking")
	return cmd
}

func newAccountsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge accounts from an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			report, err := store.Merge(ctx.runContext(cmd), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				now := time.Now()
				view := struct {
					Added         []accountView `json:"added"`
					Skipped       []accountView `json:"skipped"`
					DrivesCreated int           `json:"drives_created"`
				}{Added: []accountView{}, Skipped: []accountView{}, DrivesCreated: report.DrivesCreated}
				for _, added := range report.Added {
					view.Added = append(view.Added, newAccountView(added.DriveID, 0, added.Account, now))
				}
				for _, skipped := range report.Skipped {
					view.Skipped = append(view.Skipped, newAccountView(skipped.DriveID, 0, skipped.Account, now))
				}
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d accounts (%d new drives)\n", len(report.Added), report.DrivesCreated)
			for _, skipped := range report.Skipped {
				fmt.Fprintf(out, "Skipped %s on drive %s: name already exists\n", skipped.Account.Name, skipped.DriveID)
			}
			return nil
		},
	}
}

func newAccountsExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every drive and account to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			if err := store.Export(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported accounts to %s\n", args[0])
			return nil
		},
	}
}
