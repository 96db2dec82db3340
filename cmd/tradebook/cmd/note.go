package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
)

func newNoteCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Write day and trade notes",
		Long: `Attach free text notes to a trading day or a closed trade. An empty
text removes the note.

Examples:
  tradebook note day U1234567 2026-02-18 "overtraded the open"
  tradebook note trade <trade-id> "entry was late"`,
	}

	day := &cobra.Command{
		Use:   "day <account> <YYYY-MM-DD> <text>",
		Short: "Set the note for an account and day",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.Parse(journal.DateLayout, args[1]); err != nil {
				return fmt.Errorf("date: %w", err)
			}

			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			body := strings.Join(args[2:], " ")
			if err := j.SetDayNote(cmd.Context(), args[0], args[1], body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "note saved for %s %s\n", args[0], args[1])
			return nil
		},
	}

	trade := &cobra.Command{
		Use:   "trade <trade-id> <text>",
		Short: "Set the note for a closed trade",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			body := strings.Join(args[1:], " ")
			if err := j.SetClosedTradeNote(cmd.Context(), args[0], body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "note saved for %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(day, trade)
	return cmd
}
