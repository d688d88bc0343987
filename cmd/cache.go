package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsgate/internal/bootstrap"
	"github.com/jonesrussell/newsgate/internal/budget"
	"github.com/jonesrussell/newsgate/internal/cache"
)

func newCacheCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the cache tiers and credit budget",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics and today's credit usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}

			app, err := bootstrap.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			renderCacheStats(out, app.CacheStats())
			if app.Budget == nil {
				fmt.Fprintln(out, "News API disabled: no credit budget")
				return nil
			}
			renderUsage(out, app.Budget.Usage())
			return nil
		},
	})
	return cmd
}

func renderCacheStats(out io.Writer, stats []cache.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Tier", "Entries", "Hits", "Misses", "Hit Rate", "Approx Bytes"})
	for _, s := range stats {
		t.AppendRow(table.Row{s.Tier, s.Entries, s.Hits, s.Misses, fmt.Sprintf("%.1f%%", s.HitRate*100), s.ApproxBytes})
	}
	t.Render()
}

func renderUsage(out io.Writer, u budget.Usage) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Credits " + u.Date)
	t.AppendHeader(table.Row{"Used", "Limit", "Remaining", "Articles/Credit", "Usage"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Usage", Align: text.AlignRight}})
	t.AppendRow(table.Row{u.CreditsUsed, u.Limit, u.Remaining, u.ArticlesPerCredit, fmt.Sprintf("%.0f%%", u.Ratio*100)})
	t.Render()
}
