package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
	"github.com/jonesrussell/newsgate/internal/scrape"
	"github.com/jonesrussell/newsgate/internal/sources"
)

func newSourcesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect feed sources and scrape sites",
	}
	cmd.AddCommand(newSourcesListCommand(root), newSourcesValidateCommand())
	return cmd
}

func newSourcesListCommand(root *rootOptions) *cobra.Command {
	var (
		category   string
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured feed sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}

			reg := sources.NewDefaultRegistry(logger.NewNop())
			if cfg.Sources.File != "" {
				if err = reg.LoadFile(cfg.Sources.File); err != nil {
					return fmt.Errorf("load sources: %w", err)
				}
			}

			list := reg.All()
			if category != "" {
				cat, parseErr := domain.ParseCategory(category)
				if parseErr != nil {
					return parseErr
				}
				list = reg.ByCategory(cat)
			}
			if activeOnly {
				list = activeSources(list)
			}

			renderSources(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only list sources in this category")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only list active sources")
	return cmd
}

func activeSources(in []domain.SourceDescriptor) []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, 0, len(in))
	for _, s := range in {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

func renderSources(out io.Writer, list []domain.SourceDescriptor) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Category", "Tier", "Active", "URL"})
	for _, s := range list {
		t.AppendRow(table.Row{s.Name, s.Category, s.Tier, s.Active, s.URL})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(list)})
	t.Render()
}

var errInvalidFile = errors.New("file contains invalid entries")

func newSourcesValidateCommand() *cobra.Command {
	var sitesFile string

	cmd := &cobra.Command{
		Use:   "validate [sources.yaml]",
		Short: "Validate a sources file and optionally a scrape sites file",
		Long: `Decodes every entry and reports the ones that would be skipped at load time.

Example:
  newsgate sources validate config/sources.yaml --sites config/sites.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && sitesFile == "" {
				return errors.New("nothing to validate: pass a sources file or --sites")
			}

			out := cmd.OutOrStdout()
			rep := newValidationReport()
			if len(args) == 1 {
				list, err := sources.LoadFile(args[0], rep)
				if err != nil && !errors.Is(err, sources.ErrNoSources) {
					return err
				}
				fmt.Fprintf(out, "%s: %d valid sources\n", args[0], len(list))
			}
			if sitesFile != "" {
				sites, err := scrape.LoadFile(sitesFile, rep)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d valid sites\n", sitesFile, len(sites))
			}

			problems := rep.problems()
			if len(problems) == 0 {
				fmt.Fprintln(out, "OK")
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return fmt.Errorf("%w: %d problems", errInvalidFile, len(problems))
		},
	}
	cmd.Flags().StringVar(&sitesFile, "sites", "", "scrape sites file to validate")
	return cmd
}
