package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
)

func newAccountsCmd(ro *rootOptions) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts with their latest equity",
		Long: `List every account seen in an import. With --history, print every
imported account snapshot instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if history {
				snaps, err := j.ListAccountSnapshots(ctx)
				if err != nil {
					return err
				}
				table := newTable(out, "Date", "Account", "Equity", "Realized", "Unrealized", "Ccy")
				for _, s := range snaps {
					table.Append(s.Date, s.AccountID, optMoney(s.Equity), optMoney(s.RealizedPnl), optMoney(s.UnrealizedPnl), s.Currency)
				}
				table.Render()
				return nil
			}

			accts, err := j.ListAccounts(ctx)
			if err != nil {
				return err
			}
			latest, err := j.LatestAccountSnapshots(ctx)
			if err != nil {
				return err
			}
			byAccount := make(map[string]journal.AccountSnapshot, len(latest))
			for _, s := range latest {
				byAccount[s.AccountID] = s
			}

			table := newTable(out, "Account", "Ccy", "Created", "Equity", "As of")
			for _, a := range accts {
				s, ok := byAccount[a.ID]
				asOf := "-"
				if ok {
					asOf = s.Date
				}
				table.Append(a.ID, a.BaseCurrency, stamp(a.CreatedAt), optMoney(s.Equity), asOf)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "list every account snapshot")
	return cmd
}
