package cmd

import (
	"github.com/spf13/cobra"
)

func newPositionsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List positions from the latest positions import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			positions, err := j.ListPositions(cmd.Context())
			if err != nil {
				return err
			}

			table := newTable(cmd.OutOrStdout(), "Account", "Symbol", "Type", "Qty", "Avg cost", "Unrealized", "Ccy", "Updated")
			for _, p := range positions {
				table.Append(
					p.AccountID,
					p.Symbol,
					p.AssetType,
					qty(p.Quantity),
					price(p.AvgCost),
					optMoney(p.UnrealizedPnl),
					p.Currency,
					stamp(p.UpdatedAt),
				)
			}
			table.Render()
			return nil
		},
	}
}
