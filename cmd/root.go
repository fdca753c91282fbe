// Package cmd provides the root command and CLI setup for tempo.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tempo-ml/tempo/internal/adapter"
	"github.com/tempo-ml/tempo/internal/controller"
	"github.com/tempo-ml/tempo/internal/domain"
	m "github.com/tempo-ml/tempo/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var pythonAdapter adapter.PythonFileAdapter
var reportStore adapter.ReportStore
var processRunner adapter.ProcessRunner

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

// verboseFlag raises the log level to debug when set.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	pythonAdapter = adapter.NewGpythonFileAdapter()
	reportStore = adapter.NewFileReportStore()
	processRunner = adapter.NewLocalProcessRunner()
}

const rootLongDescription = `Tempo inspects machine-learning training repositories: it ranks likely
training entrypoints, detects mixed-precision, distributed and sharding
patterns without executing any code, and profiles short capped training
runs inside a sandbox so the repository is never mutated by accident.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tempo",
		Short: "Training-repository analyzer and profiler",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude paths containing this segment (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log debug details to the log file")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// excludePolicy extends the built-in skip list with config/flag patterns.
func excludePolicy() adapter.ExcludePolicy {
	policy := adapter.DefaultExcludePolicy()
	policy.Extra = append(policy.Extra, viper.GetStringSlice(excludeConfigKey)...)

	return policy
}

// newWorkflow assembles the domain services for one command invocation so
// flag and config values resolved at run time feed the wiring.
func newWorkflow() domain.Workflow {
	policy := excludePolicy()
	agent := adapter.NewCommandAgentRunner(viper.GetString(agentConfigKey))
	index := domain.NewSourceIndex(fsAdapter, pythonAdapter, policy)
	detector := domain.NewPatternDetector(fsAdapter, pythonAdapter)
	isolation := domain.NewIsolationManager(fsAdapter, policy)
	safety := domain.NewSafetyInjector(fsAdapter)
	recorder := domain.NewRunRecorder(fsAdapter, processRunner, safety)
	ledger := domain.NewSnapshotLedger(fsAdapter, reportStore, policy)

	return domain.NewWorkflow(fsAdapter, reportStore, agent, index, detector, isolation, safety, recorder, ledger)
}

func newUI(cmd *cobra.Command) controller.UI {
	return controller.NewSimpleUI(cmd)
}

// repoArg resolves the optional positional repository path.
func repoArg(args []string) m.Path {
	if len(args) == 0 {
		return m.Path(".")
	}

	return m.Path(args[0])
}
