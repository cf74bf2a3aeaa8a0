package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/pipeline"
	"github.com/derickschaefer/bazi/internal/tui"
)

var (
	formSample bool
	formLog    string
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Open the interactive calculation form",
	Long: `Open a full-screen form with the birth fields and the API address.

The service is probed once on start. Press enter to calculate, ctrl+t to
fill the sample record, tab to move between fields and esc to quit.
Leaving the API address field applies the new address.

Logs never go to the screen while the form is open; use --log to keep them.`,
	Example: `  bazi form
  bazi form --sample
  bazi form --debug --log form.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if !pipeline.IsTTY() {
			return fmt.Errorf("bazi form needs a terminal; use 'bazi calculate' in scripts")
		}

		var logOut io.Writer = io.Discard
		if formLog != "" {
			f, err := os.OpenFile(formLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
		logger := newLogger(logOut)
		slog.SetDefault(logger)

		initial := form.Fields{
			Minute:   "0",
			Timezone: form.DefaultTimezone,
			UserID:   deps.Config.UserID,
		}
		if formSample {
			initial = form.SampleFields()
		}

		out, err := tui.Run(cmd.Context(), tui.Options{
			API:      deps.Client,
			Endpoint: deps.Endpoint,
			Logger:   logger,
			Initial:  initial,
		})
		if err != nil {
			return err
		}
		if out.Reading != nil && out.Reading.ID != "" && !deps.Config.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "记录ID: %s\n", out.Reading.ID)
		}
		return nil
	},
}

func init() {
	formCmd.Flags().BoolVar(&formSample, "sample", false, "open with the sample record filled in")
	formCmd.Flags().StringVar(&formLog, "log", "", "append logs to this file")
	rootCmd.AddCommand(formCmd)
}
