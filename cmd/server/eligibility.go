package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"idvgate/internal/platform/config"
	"idvgate/internal/verification/models"
	"idvgate/internal/verification/policy"
)

// newEligibilityCmd dry-runs the configured policy for a hypothetical subject.
func newEligibilityCmd(cfg *config.Server) *cobra.Command {
	var (
		logins    int
		lastCheck string
	)
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Report whether a login would be sent to verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := models.Subject{ID: "dry-run", LoginsCount: logins}
			if lastCheck != "" {
				at, err := time.Parse(time.RFC3339, lastCheck)
				if err != nil {
					return fmt.Errorf("--last-check must be RFC3339: %w", err)
				}
				subject.Verification = &models.VerificationRecord{LastCheckAt: &at, CheckCount: 1}
			}

			now := time.Now()
			out := cmd.OutOrStdout()
			for _, w := range cfg.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintf(out, "policy: trigger_on_first_login=%t recheck_interval_days=%d\n",
				cfg.Policy.TriggerOnFirstLogin, cfg.Policy.RecheckIntervalDays)
			if at := subject.LastCheckAt(); at != nil {
				fmt.Fprintf(out, "elapsed_days: %d\n", policy.ElapsedDays(*at, now))
			}
			fmt.Fprintf(out, "verify: %t\n", policy.ShouldVerify(subject, cfg.Policy, now))
			return nil
		},
	}
	cmd.Flags().IntVar(&logins, "logins", 1, "login count including the current one")
	cmd.Flags().StringVar(&lastCheck, "last-check", "", "time of the last completed check (RFC3339)")
	return cmd
}
