package main

import (
	"github.com/okian/churnlens/internal/report"
	"github.com/spf13/cobra"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a running service against a local evaluation",
		Long: `Evaluate the accounts file locally and compare the result with a running
service: health, portfolio KPIs, category distribution, the top accounts at
risk and the detail of the riskiest account.

The command exits non-zero when any check disagrees.`,
		Example: `  report verify --url http://localhost:9080 --data data/accounts.csv`,
		RunE:    runVerify,
	}

	cmd.Flags().String("url", report.DefaultBaseURL, "base URL of the service")
	cmd.Flags().Duration("timeout", report.DefaultTimeout, "HTTP request timeout")
	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	rc, err := reportConfig(cmd)
	if err != nil {
		return err
	}
	if rc.BaseURL, err = cmd.Flags().GetString("url"); err != nil {
		return err
	}
	if rc.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}

	engine, err := cfg.Engine()
	if err != nil {
		return err
	}
	return report.RunVerify(cmd.Context(), rc, engine, cmd.OutOrStdout())
}
