package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsgate/internal/aggregator"
	"github.com/jonesrussell/newsgate/internal/bootstrap"
	"github.com/jonesrussell/newsgate/internal/domain"
)

const (
	defaultShowArticles = 20
	maxTitleWidth       = 80
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var (
		req  aggregator.Request
		show int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one aggregation and print the result",
		Long: `Runs the aggregation pipeline once: news API first, then RSS feeds in
tiered batches, then the optional scrape supplement.

Example:
  newsgate run --scrape --show 50`,
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

			res, err := app.Aggregator.Run(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("aggregate: %w", err)
			}

			out := cmd.OutOrStdout()
			renderArticles(out, res.Articles, show)
			renderRunStats(out, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&req.IncludeScrape, "scrape", false, "include the scrape supplement")
	cmd.Flags().BoolVar(&req.SkipCache, "fresh", false, "bypass the feed cache")
	cmd.Flags().IntVarP(&show, "show", "n", defaultShowArticles, "number of articles to print (0 for all)")
	return cmd
}

func renderArticles(out io.Writer, articles []domain.Article, show int) {
	if show <= 0 || show > len(articles) {
		show = len(articles)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Published", "Category", "Source", "Title"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Title", WidthMax: maxTitleWidth}})
	for _, a := range articles[:show] {
		published := "-"
		if !a.PubDate.IsZero() {
			published = a.PubDate.Local().Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{published, a.Category, a.Source, a.Title})
	}
	t.AppendFooter(table.Row{"", "", "Showing", fmt.Sprintf("%d of %d", show, len(articles))})
	t.Render()
}

func renderRunStats(out io.Writer, res *aggregator.Result) {
	s := res.Stats
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Metric", "Value"})
	t.AppendRows([]table.Row{
		{"api", "articles", s.APIArticles},
		{"api", "cached", s.APICached},
		{"api", "errors", s.APIErrors},
		{"rss", "skipped", s.RSSSkipped},
		{"rss", "batches", s.RSSBatches},
		{"rss", "sources ok / failed", fmt.Sprintf("%d / %d", s.RSSSourcesOK, s.RSSSourcesFailed)},
		{"rss", "articles", s.RSSArticles},
		{"scrape", "articles", s.ScrapeArticles},
		{"moderation", "rejected", s.Rejected},
		{"merge", "duplicate links", s.DuplicateLinks},
	})
	t.AppendFooter(table.Row{"total", len(res.Articles), s.Duration.Round(time.Millisecond)})
	t.Render()
}
