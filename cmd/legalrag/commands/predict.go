package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/legalrag-go/internal/intake"
	"github.com/54b3r/legalrag-go/internal/logging"
	"github.com/54b3r/legalrag-go/internal/tracing"
	"github.com/54b3r/legalrag-go/internal/urgency"
)

// NewPredictCmd constructs the `legalrag predict` command, which classifies a
// single case and writes the prediction JSON to stdout.
func NewPredictCmd() *cobra.Command {
	var trialDate string
	var record bool

	cmd := &cobra.Command{
		Use:   "predict [case description]",
		Short: "Classify one case and print the prediction as JSON",
		Long: `Classify a single case description by type and urgency.

The output has the same shape as the HTTP API's POST /predict/ response.

Examples:
  legalrag predict "Tenant served an eviction notice after reporting mold"
  legalrag predict --trial-date 2025-06-30 "Breach of a software licence agreement"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if trialDate != "" {
				if _, err := urgency.DaysUntil(trialDate, timeNow()); err != nil {
					return fmt.Errorf("predict: --trial-date must be YYYY-MM-DD: %w", err)
				}
			}

			flush := tracing.Init(log)
			defer flush()

			a, err := newApp(ctx, log, record)
			if err != nil {
				return fmt.Errorf("predict: %w", err)
			}
			defer a.Close()

			in := intake.CaseInput{
				CaseDescription: strings.Join(args, " "),
				TrialDate:       trialDate,
			}
			res, err := a.service.Predict(ctx, in)
			if err != nil {
				return fmt.Errorf("predict: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(intake.Prediction{Input: in, Response: res})
		},
	}

	cmd.Flags().StringVarP(&trialDate, "trial-date", "t", "", "Trial date (YYYY-MM-DD); overrides the model's urgency")
	cmd.Flags().BoolVar(&record, "record", false, "Persist the prediction to the history store")

	return cmd
}
