package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tempo-ml/tempo/internal/domain"
	m "github.com/tempo-ml/tempo/internal/model"
)

var optimizePlanFlag bool
var optimizeApplyFlag bool
var optimizeJSONFlag bool

// optimizeCmd represents the optimize command.
var optimizeCmd = newOptimizeCmd()

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize [path]",
		Short: "Profile, hand findings to an agent, and measure the difference",
		Long: `Profile the repository to establish a baseline. With --plan, also write
the analysis report for an external optimization agent. With --apply,
snapshot the repository, run the configured agent on it and profile again
to measure before/after deltas. The default is a dry run that only
profiles.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := m.ModeDryRun
			if optimizePlanFlag {
				mode = m.ModePlan
			}

			if optimizeApplyFlag {
				mode = m.ModeApply
			}

			report, err := newWorkflow().Optimize(cmd.Context(), repoArg(args), domain.OptimizeArgs{
				Mode: mode,
				Profile: domain.ProfileArgs{
					Interpreter: viper.GetString(pythonConfigKey),
					MaxSteps:    viper.GetInt(maxStepsConfigKey),
					Isolated:    true,
					Timeout:     profileTimeout(),
				},
			})
			if err != nil {
				return err
			}

			if optimizeJSONFlag {
				return printJSON(cmd, report)
			}

			newUI(cmd).ShowOptimize(report)

			return nil
		},
	}

	cmd.Flags().BoolVar(&optimizePlanFlag, planFlagName, false, "write the analysis report for the agent, but do not run it")
	cmd.Flags().BoolVar(&optimizeApplyFlag, applyFlagName, false, "snapshot, run the configured agent and re-profile")
	cmd.Flags().BoolVar(&optimizeJSONFlag, jsonFlagName, false, "print the optimize report as JSON")

	return cmd
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}
