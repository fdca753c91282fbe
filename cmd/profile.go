package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tempo-ml/tempo/internal/domain"
	m "github.com/tempo-ml/tempo/internal/model"
)

var profileMaxStepsFlag int
var profilePythonFlag string
var profileNoIsolateFlag bool
var profileKeepSavingFlag bool
var profileJSONFlag bool

// profileCmd represents the profile command.
var profileCmd = newProfileCmd()

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [path] [-- script args...]",
		Short: "Run a capped training run inside a sandbox",
		Long: `Copy the repository into a sandbox, inject the safety hook and run the
top-ranked training script (or the one given with --script) for a bounded
number of optimizer steps. Checkpoint saving is disabled unless
--keep-saving is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, scriptArgs := splitProfileArgs(cmd, args)

			artifact, err := newWorkflow().Profile(cmd.Context(), repo, domain.ProfileArgs{
				Script:      m.Path(profileScriptFlag),
				ScriptArgs:  scriptArgs,
				Interpreter: viper.GetString(pythonConfigKey),
				MaxSteps:    viper.GetInt(maxStepsConfigKey),
				Isolated:    !profileNoIsolateFlag,
				KeepSaving:  profileKeepSavingFlag,
				Timeout:     profileTimeout(),
			})
			if err != nil {
				return err
			}

			if profileJSONFlag {
				return printJSON(cmd, artifact)
			}

			newUI(cmd).ShowRun(artifact)

			return nil
		},
	}

	configureProfileFlags(cmd)

	return cmd
}

var profileScriptFlag string

func init() {
	rootCmd.AddCommand(profileCmd)
}

func configureProfileFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&profileScriptFlag, "script", "s", "", "training script relative to the repository root (default: best candidate)")
	cmd.Flags().IntVar(&profileMaxStepsFlag, maxStepsFlagName, viper.GetInt(maxStepsConfigKey), "stop the run after this many optimizer steps")
	bindFlagToConfig(cmd.Flags().Lookup(maxStepsFlagName), maxStepsConfigKey)
	cmd.Flags().StringVar(&profilePythonFlag, pythonFlagName, viper.GetString(pythonConfigKey), "Python interpreter to run the script with")
	bindFlagToConfig(cmd.Flags().Lookup(pythonFlagName), pythonConfigKey)
	cmd.Flags().BoolVar(&profileNoIsolateFlag, noIsolateFlagName, false, "run in place instead of a sandbox copy")
	cmd.Flags().BoolVar(&profileKeepSavingFlag, keepSavingFlagName, false, "leave checkpoint saving enabled during the run")
	cmd.Flags().BoolVar(&profileJSONFlag, jsonFlagName, false, "print the run artifact as JSON")
}

// splitProfileArgs separates the optional repository path from script args
// passed after "--".
func splitProfileArgs(cmd *cobra.Command, args []string) (m.Path, []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return repoArg(args), nil
	}

	return repoArg(args[:dash]), args[dash:]
}
