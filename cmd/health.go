package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/render"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the calculation service is reachable",
	Long: `Probe GET {base}/health. Any 2xx answer counts as healthy.

Exits non-zero when the service answers with an error status or cannot be
reached.`,
	Example: `  bazi health
  bazi health --api-url http://10.0.0.5:8000
  bazi health --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}

		start := time.Now()
		h, err := deps.Client.Health(cmd.Context(), deps.Endpoint)
		if err != nil || format == render.FormatTable {
			w, closeFn, oerr := outputWriter(cmd.OutOrStdout())
			if oerr != nil {
				return oerr
			}
			render.Health(w, deps.Endpoint.BaseURL, err)
			closeFn()
			if err != nil {
				return reportedError{err: err}
			}
			if deps.Config.Verbose && h.Version != "" {
				cmd.PrintErrf("version %s  %s\n", h.Version, h.Message)
			}
			return nil
		}

		result := buildResult(model.KindHealth, "health", h, 1, start)
		return emit(cmd, result, format, deps.Config.Verbose)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
