package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsgate/internal/bootstrap"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API with scheduled refreshes",
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

			return app.Serve(cmd.Context(), bootstrap.ServeOptions{
				Version:    Version,
				RunOnStart: runOnStart,
			})
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "aggregate once as soon as the server starts")
	return cmd
}
