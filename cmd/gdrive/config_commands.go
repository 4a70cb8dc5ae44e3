package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"gdrive/internal/config"
	"gdrive/internal/services"
)

var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check and print the configuration",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigValidateCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var target string
	var overwrite bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sampleTarget(target)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(path); err == nil {
					return services.Wrap(services.ErrValidation, "cli", "config init",
						fmt.Sprintf("%s already exists (pass --overwrite to replace it)", path), nil)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return services.Wrap(services.ErrPersistence, "cli", "config init", path, err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return services.Wrap(services.ErrPersistence, "cli", "config init", filepath.Dir(path), err)
			}
			if err := config.CreateSample(path); err != nil {
				return services.Wrap(services.ErrPersistence, "cli", "config init", path, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", path)
			fmt.Fprintln(out, "Set tmdb.api_key (or export TMDB_API_KEY) before resolving names.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "path", "p", "", "Where to write the file (default ~/.config/gdrive/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func sampleTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag == "" {
		return config.DefaultConfigPath()
	}
	path, err := config.ExpandPath(flag)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "config init", flag, err)
	}
	return path, nil
}

// newConfigValidateCommand loads the file itself so it can report the path
// and whether defaults were used instead of failing in the root pre-run.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report problems",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "config validate", path, err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			if err := cfg.ValidateTMDB(); err != nil {
				fmt.Fprintf(out, "Warning: %v (names cannot be resolved)\n", err)
			}
			if cfg.Paths.SyncRoot == "" {
				fmt.Fprintln(out, "Warning: paths.sync_root is empty (drive aliases will not move sync folders)")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			for _, secret := range []*string{&shown.TMDB.APIKey, &shown.Playback.CryptoPassword, &shown.Playback.CryptoSalt} {
				if *secret != "" {
					*secret = "********"
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, shown)
			}
			data, err := toml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
