package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gdrive/internal/titlecache"
)

func newTitlesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "titles",
		Short: "Inspect the title correction cache",
	}
	cmd.AddCommand(newTitlesListCommand(ctx))
	cmd.AddCommand(newTitlesStatsCommand(ctx))
	return cmd
}

type titleView struct {
	Kind          string `json:"kind"`
	OriginalTitle string `json:"original_title"`
	OriginalYear  string `json:"original_year,omitempty"`
	Title         string `json:"title"`
	Year          string `json:"year,omitempty"`
}

func newTitlesListCommand(ctx *commandContext) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached title corrections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.runContext(cmd)
			cache, err := ctx.openTitleCache(runCtx)
			if err != nil {
				return err
			}
			defer cache.Close()

			kinds := []titlecache.Kind{titlecache.KindMovie, titlecache.KindSeries}
			if kind = strings.TrimSpace(kind); kind != "" {
				kinds = []titlecache.Kind{titlecache.Kind(strings.ToLower(kind))}
			}
			views := make([]titleView, 0)
			for _, k := range kinds {
				entries, err := cache.List(runCtx, k)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					views = append(views, titleView{
						Kind:          string(entry.Kind),
						OriginalTitle: entry.OriginalTitle,
						OriginalYear:  entry.OriginalYear,
						Title:         entry.Title,
						Year:          entry.Year,
					})
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Title cache is empty")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Kind, v.OriginalTitle, v.OriginalYear, v.Title, v.Year})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Kind", "Original title", "Year", "Title", "Year"},
				rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only list movie or series corrections")
	return cmd
}

func newTitlesStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many corrections are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.runContext(cmd)
			cache, err := ctx.openTitleCache(runCtx)
			if err != nil {
				return err
			}
			defer cache.Close()
			movies, series, err := cache.Count(runCtx)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"path": cache.Path(), "movies": movies, "series": series})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:  %s\n", cache.Path())
			fmt.Fprintf(out, "Movies: %d\n", movies)
			fmt.Fprintf(out, "Series: %d\n", series)
			return nil
		},
	}
}
