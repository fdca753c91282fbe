package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tempo-ml/tempo/internal/domain"
)

var undoForceFlag bool
var undoDiffFlag bool

// undoCmd represents the undo command.
var undoCmd = newUndoCmd()

func newUndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo [path] [run-id]",
		Short: "Restore files from a snapshot",
		Long: `Restore the repository to the state captured in a snapshot, newest by
default. Files edited since the snapshot are left alone unless --force is
given; --diff shows what changed in such files.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repoArg(args)
			ledger := domain.NewSnapshotLedger(fsAdapter, reportStore, excludePolicy())

			runID := ""
			if len(args) > 1 {
				runID = args[1]
			}

			if runID == "" {
				latest, err := ledger.LatestRunID(repo)
				if err != nil {
					return err
				}

				runID = latest
			}

			report, err := ledger.Undo(repo, runID, undoForceFlag)
			if err != nil {
				return err
			}

			newUI(cmd).ShowUndo(report, undoDiffFlag)

			return nil
		},
	}

	cmd.Flags().BoolVar(&undoForceFlag, forceFlagName, false, "overwrite files even when they changed since the snapshot")
	cmd.Flags().BoolVar(&undoDiffFlag, diffFlagName, false, "show diffs for files that diverged from the snapshot")

	return cmd
}

func init() {
	rootCmd.AddCommand(undoCmd)
}
