package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/app"
	"github.com/derickschaefer/bazi/internal/chart"
	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/render"
	"github.com/derickschaefer/bazi/internal/store"
	"github.com/derickschaefer/bazi/internal/util"
)

var (
	calcBirth   birthFlags
	calcProfile string
	calcChart   bool
	calcSave    bool
)

var calculateCmd = &cobra.Command{
	Use:     "calculate",
	Aliases: []string{"calc"},
	Short:   "Calculate the four pillars for a birth date and time",
	Long: `Send a birth date and time to the service and print the reading.

Values are passed through as typed: a field that is empty or not a number
is sent as null and the service reports what it rejects. Minute defaults
to 0 and timezone to Asia/Shanghai.

Use --profile to start from a saved profile; explicit flags override it.
Use --save to keep the reading in the local history.`,
	Example: `  bazi calculate --year 1990 --month 5 --day 15 --hour 14 --minute 30
  bazi calculate --sample
  bazi calculate --sample --format json
  bazi calculate --profile mum --hour 9 --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		base := form.Fields{UserID: deps.Config.UserID}
		if calcProfile != "" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			p, found, err := deps.Store.GetProfile(calcProfile)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("profile %q not found (see: bazi profile list)", calcProfile)
			}
			base = fieldsFromProfile(p)
		}
		fields := calcBirth.defaults(calcBirth.apply(cmd, base))
		return runCalculation(cmd, deps, fields, calculation{
			profile: calcProfile,
			chart:   calcChart,
			save:    calcSave,
		})
	},
}

// calculation carries the per-invocation options shared by calculate and
// profile run.
type calculation struct {
	profile string
	chart   bool
	save    bool
}

// runCalculation submits fields through a form controller and prints the
// page. A failed submission prints the page error to stderr and returns a
// reportedError.
func runCalculation(cmd *cobra.Command, deps *app.Deps, fields form.Fields, opts calculation) error {
	format, err := resolveFormat(deps.Config.Format)
	if err != nil {
		return err
	}

	start := time.Now()
	page := form.NewPage(fields)
	ctrl := deps.Controller(page)
	out := ctrl.Submit(cmd.Context())

	if !out.OK() {
		render.Page(cmd.ErrOrStderr(), page)
		return reportedError{err: fmt.Errorf("%s: %s", out.Kind, out.Message)}
	}

	if opts.save || opts.profile != "" {
		if err := recordRun(deps, page, out.Reading, opts); err != nil {
			deps.Logger.Warn("local store not updated", "err", err)
		}
	}

	if format != render.FormatTable {
		result := buildResult(model.KindReading, "calculate", out.Reading, 1, start)
		return emit(cmd, result, format, deps.Config.Verbose)
	}

	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeFn()

	render.Page(w, page)
	if opts.chart {
		fmt.Fprintln(w)
		if err := chart.Elements(w, out.Reading.WuxingAnalysis, chart.BarOptions{}); err != nil {
			return err
		}
	}
	if out.Reading.ID != "" && !deps.Config.Quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "记录ID: %s\n", out.Reading.ID)
	}
	return nil
}

// recordRun journals the reading and stamps the profile it came from.
func recordRun(deps *app.Deps, page *form.Page, r *model.Reading, opts calculation) error {
	if err := deps.RequireStore(); err != nil {
		return err
	}
	now := time.Now()
	var errs util.MultiError
	if opts.save {
		errs.Add(deps.Store.AppendHistory(store.HistoryEntry{
			At:      now,
			Profile: opts.profile,
			Request: page.Fields().Request(),
			Reading: r,
		}))
	}
	if opts.profile != "" {
		errs.Add(deps.Store.MarkProfileRun(opts.profile, r.ID, now))
	}
	return errs.Err()
}

func init() {
	calcBirth.register(calculateCmd)
	calculateCmd.Flags().StringVar(&calcProfile, "profile", "", "start from a saved profile")
	calculateCmd.Flags().BoolVar(&calcChart, "chart", true, "draw the five-element bar chart after the reading")
	calculateCmd.Flags().BoolVar(&calcSave, "save", false, "journal the reading in the local history")
	rootCmd.AddCommand(calculateCmd)
}
