package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tempo-ml/tempo/internal/domain"
	m "github.com/tempo-ml/tempo/internal/model"
)

var analyzeEngineFlag string
var analyzeScanAllFlag bool
var analyzeOutputFlag string
var analyzeJSONFlag bool

// analyzeCmd represents the analyze command.
var analyzeCmd = newAnalyzeCmd()

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Detect mixed-precision, distributed and sharding patterns",
		Long: `Statically scan Python sources and known config files for acceleration
patterns. The default engine parses files into syntax trees and resolves
imports; files that fail to parse fall back to substring matching.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := parseEngine(viper.GetString(engineConfigKey))
			if err != nil {
				return err
			}

			report, err := newWorkflow().Analyze(repoArg(args), domain.DetectOptions{
				Engine:  engine,
				ScanAll: analyzeScanAllFlag,
			})
			if err != nil {
				return err
			}

			if analyzeOutputFlag != "" {
				if err := reportStore.SaveReport(m.Path(analyzeOutputFlag), report); err != nil {
					return err
				}
			}

			if analyzeJSONFlag {
				return printJSON(cmd, report)
			}

			newUI(cmd).ShowText(domain.FormatReportText(report))

			return nil
		},
	}

	cmd.Flags().StringVar(&analyzeEngineFlag, engineFlagName, viper.GetString(engineConfigKey), "detection engine: ast or string")
	bindFlagToConfig(cmd.Flags().Lookup(engineFlagName), engineConfigKey)
	cmd.Flags().BoolVar(&analyzeScanAllFlag, scanAllFlagName, false, "scan every Python file instead of only ranked candidates")
	cmd.Flags().StringVarP(&analyzeOutputFlag, outputFlagName, "o", "", "also write the report as JSON to this path")
	cmd.Flags().BoolVar(&analyzeJSONFlag, jsonFlagName, false, "print the report as JSON")

	return cmd
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func parseEngine(value string) (domain.Engine, error) {
	switch domain.Engine(value) {
	case domain.EngineAST:
		return domain.EngineAST, nil
	case domain.EngineString:
		return domain.EngineString, nil
	}

	return "", fmt.Errorf("unknown engine %q (expected %q or %q)", value, domain.EngineAST, domain.EngineString)
}
