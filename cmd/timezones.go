package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/model"
)

var timezonesCmd = &cobra.Command{
	Use:     "timezones",
	Aliases: []string{"tz"},
	Short:   "List the timezones the service accepts",
	Long: `Print the common timezones grouped by region. With --format json the
full list of accepted zone names is included as well.`,
	Example: `  bazi timezones
  bazi timezones --format json`,
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
		cat, err := deps.Client.Timezones(cmd.Context(), deps.Endpoint)
		if err != nil {
			return fmt.Errorf("fetching timezones: %w", err)
		}
		n := 0
		for _, zones := range cat.Common {
			n += len(zones)
		}
		result := buildResult(model.KindTimezones, "timezones", cat, n, start)
		return emit(cmd, result, format, deps.Config.Verbose)
	},
}

func init() {
	rootCmd.AddCommand(timezonesCmd)
}
