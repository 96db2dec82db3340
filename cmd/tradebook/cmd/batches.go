package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBatchesCmd(ro *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Show import history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			batches, err := j.ListImportBatches(cmd.Context(), limit)
			if err != nil {
				return err
			}

			table := newTable(cmd.OutOrStdout(), "Imported", "Kind", "File", "Account", "Seen", "Imported", "Skipped", "Notes", "Batch")
			for _, b := range batches {
				table.Append(
					stamp(b.ImportedAt),
					b.Kind,
					b.Filename,
					b.AccountID,
					fmt.Sprint(b.RowsSeen),
					fmt.Sprint(b.RowsImported),
					fmt.Sprint(b.RowsSkipped),
					b.Notes,
					b.ID,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of batches, 0 for all")
	return cmd
}
