package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tempo-ml/tempo/internal/adapter"
	"github.com/tempo-ml/tempo/internal/domain"
)

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Verify the prerequisites for profiling",
		Long: `Probe the Python interpreter, the optional optimization agent and write
access to the artifacts directory without touching repository sources.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent := adapter.NewCommandAgentRunner(viper.GetString(agentConfigKey))
			report := domain.RunCheck(fsAdapter, agent, viper.GetString(pythonConfigKey), repoArg(args))

			newUI(cmd).ShowCheck(report)

			if !report.OK() {
				return fmt.Errorf("environment check failed")
			}

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
