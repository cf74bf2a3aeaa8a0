package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

// completionCmd wraps Cobra's built-in shell completion generator.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for bazi.

To load completions in the current shell session:

  # bash
  source <(bazi completion bash)

  # zsh
  source <(bazi completion zsh)

  # fish
  bazi completion fish | source

Profile names and output formats complete as well.`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return root.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return root.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		default:
			return cmd.Help()
		}
	},
}

// completeProfileNames offers saved profile names. A missing or locked
// database yields no suggestions.
func completeProfileNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	deps, err := buildDeps()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := deps.RequireStore(); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer deps.Close()

	profiles, err := deps.Store.ListProfiles()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, p := range profiles {
		if strings.HasPrefix(p.Name, toComplete) {
			names = append(names, p.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)

	for _, c := range []*cobra.Command{profileShowCmd, profileRunCmd, profileDeleteCmd, profileSaveCmd} {
		c.ValidArgsFunction = completeProfileNames
	}
	_ = calculateCmd.RegisterFlagCompletionFunc("profile", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeProfileNames(cmd, nil, toComplete)
	})
}
