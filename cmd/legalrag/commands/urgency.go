package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/legalrag-go/internal/urgency"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// NewUrgencyCmd constructs the `legalrag urgency` command, which prints the
// urgency level implied by a trial date without calling any model.
func NewUrgencyCmd() *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "urgency [YYYY-MM-DD]",
		Short: "Print the urgency level derived from a trial date",
		Long: fmt.Sprintf(`Print the urgency level for a trial date.

Trials within %d days (including past dates) are urgent, within %d days high,
otherwise normal.

Examples:
  legalrag urgency 2025-04-15
  legalrag urgency 2025-04-15 --today 2025-04-01`, urgency.UrgentWithinDays, urgency.HighWithinDays),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := timeNow()
			if today != "" {
				t, err := time.Parse(urgency.DateLayout, today)
				if err != nil {
					return fmt.Errorf("urgency: --today must be YYYY-MM-DD: %w", err)
				}
				now = t
			}

			days, err := urgency.DaysUntil(args[0], now)
			if err != nil {
				return fmt.Errorf("urgency: trial date must be YYYY-MM-DD: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d days)\n", urgency.FromDays(days), days)
			return err
		},
	}

	cmd.Flags().StringVar(&today, "today", "", "Reference date (YYYY-MM-DD); defaults to the current date")

	return cmd
}
