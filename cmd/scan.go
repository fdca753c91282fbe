package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var scanJSONFlag bool

// scanCmd represents the scan command.
var scanCmd = newScanCmd()

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Index a repository and rank training entrypoint candidates",
		Long: `Walk the repository, count Python files and score each one as a training
entrypoint. Nothing is executed; the ranking is purely static.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := newWorkflow().Scan(repoArg(args))
			if err != nil {
				return err
			}

			if scanJSONFlag {
				return printJSON(cmd, index)
			}

			ui := newUI(cmd)
			ui.ShowIndex(index)
			ui.ShowWarnings(index.Warnings)

			return nil
		},
	}

	cmd.Flags().BoolVar(&scanJSONFlag, jsonFlagName, false, "print the index as JSON")

	return cmd
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	cmd.Println(string(data))

	return nil
}
