package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tempo-ml/tempo/internal/domain"
)

var historyJSONFlag bool

// historyCmd represents the history command.
var historyCmd = newHistoryCmd()

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [path]",
		Short: "List recorded snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger := domain.NewSnapshotLedger(fsAdapter, reportStore, excludePolicy())

			infos, err := ledger.List(repoArg(args))
			if err != nil {
				return err
			}

			if historyJSONFlag {
				return printJSON(cmd, infos)
			}

			newUI(cmd).ShowSnapshots(infos)

			return nil
		},
	}

	cmd.Flags().BoolVar(&historyJSONFlag, jsonFlagName, false, "print the snapshot list as JSON")

	return cmd
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
