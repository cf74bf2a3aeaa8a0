package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/render"
	"github.com/derickschaefer/bazi/internal/store"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"profiles"},
	Short:   "Save and replay named birth records",
	Long: `Profiles are named sets of form fields kept in the local database.

Values are stored exactly as typed, so running a profile sends the same
payload the form would.`,
}

// ─── profile save ─────────────────────────────────────────────────────────────

var profileBirth birthFlags

var profileSaveCmd = &cobra.Command{
	Use:   "save <NAME>",
	Short: "Save or update a profile",
	Long: `Save the given fields under NAME. When NAME already exists, only the
flags given on the command line change.`,
	Example: `  bazi profile save mum --year 1962 --month 3 --day 8 --hour 6
  bazi profile save sample --sample
  bazi profile save mum --timezone Asia/Hong_Kong`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := store.ValidateProfileName(name); err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		base := form.Fields{UserID: deps.Config.UserID}
		existing, found, err := deps.Store.GetProfile(name)
		if err != nil {
			return err
		}
		if found {
			base = fieldsFromProfile(existing)
		}
		fields := profileBirth.defaults(profileBirth.apply(cmd, base))

		p := profileFromFields(name, fields)
		if found {
			p.LastRunAt, p.LastRecordID = existing.LastRunAt, existing.LastRecordID
		}
		if err := deps.Store.PutProfile(p); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
		verb := "Saved"
		if found {
			verb = "Updated"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s profile %q (%s-%s-%s %s:%s %s)\n", verb, name,
			fields.Year, fields.Month, fields.Day, fields.Hour, fields.Minute, fields.Timezone)
		return nil
	},
}

// ─── profile list ─────────────────────────────────────────────────────────────

var profileListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved profiles",
	Example: `  bazi profile list
  bazi profile list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		profiles, err := deps.Store.ListProfiles()
		if err != nil {
			return fmt.Errorf("reading profiles: %w", err)
		}
		if len(profiles) == 0 && format == render.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No profiles saved.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: bazi profile save <NAME> --year ... --month ... --day ... --hour ...")
			return nil
		}
		result := buildResult(model.KindProfiles, "profile list", profiles, len(profiles), start)
		return emit(cmd, result, format, deps.Config.Verbose)
	},
}

// ─── profile show ─────────────────────────────────────────────────────────────

var profileShowCmd = &cobra.Command{
	Use:     "show <NAME>",
	Short:   "Show one profile",
	Example: `  bazi profile show mum`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		p, found, err := deps.Store.GetProfile(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("profile %q not found", args[0])
		}
		result := buildResult(model.KindProfiles, "profile show", []model.Profile{p}, 1, start)
		return emit(cmd, result, format, deps.Config.Verbose)
	},
}

// ─── profile run ──────────────────────────────────────────────────────────────

var (
	profileRunChart bool
	profileRunSave  bool
)

var profileRunCmd = &cobra.Command{
	Use:   "run <NAME>",
	Short: "Calculate a saved profile",
	Example: `  bazi profile run mum
  bazi profile run mum --save --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		p, found, err := deps.Store.GetProfile(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("profile %q not found", args[0])
		}
		return runCalculation(cmd, deps, fieldsFromProfile(p), calculation{
			profile: p.Name,
			chart:   profileRunChart,
			save:    profileRunSave,
		})
	},
}

// ─── profile delete ───────────────────────────────────────────────────────────

var profileDeleteCmd = &cobra.Command{
	Use:     "delete <NAME>",
	Aliases: []string{"rm"},
	Short:   "Delete a profile",
	Example: `  bazi profile delete mum`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		existed, err := deps.Store.DeleteProfile(args[0])
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("profile %q not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted profile %q\n", args[0])
		return nil
	},
}

func init() {
	profileBirth.register(profileSaveCmd)
	profileRunCmd.Flags().BoolVar(&profileRunChart, "chart", true, "draw the five-element bar chart after the reading")
	profileRunCmd.Flags().BoolVar(&profileRunSave, "save", false, "journal the reading in the local history")

	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileRunCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
