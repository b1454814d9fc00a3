package main

import (
	"github.com/okian/churnlens/internal/report"
	"github.com/spf13/cobra"
)

func fileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Render a markdown report from an accounts file",
		Long: `Evaluate the accounts file and render the portfolio KPIs, the category
distribution, the top accounts at risk and any data quality findings as markdown.

Without --out the markdown is written to stdout. With --out it is written to
the file and a terminal summary is printed instead.`,
		Example: `  report file --data data/accounts.csv
  report file --data data/accounts.csv --out reports/weekly.md --top 25`,
		RunE: runFile,
	}

	cmd.Flags().String("out", "", "markdown output file")
	return cmd
}

func runFile(cmd *cobra.Command, _ []string) error {
	rc, err := reportConfig(cmd)
	if err != nil {
		return err
	}
	if rc.OutPath, err = cmd.Flags().GetString("out"); err != nil {
		return err
	}

	engine, err := cfg.Engine()
	if err != nil {
		return err
	}
	return report.RunFile(cmd.Context(), rc, engine, cmd.OutOrStdout())
}

// reportConfig merges the persistent flags over the loaded configuration.
func reportConfig(cmd *cobra.Command) (*report.Config, error) {
	flags := cmd.Flags()
	data, err := flags.GetString("data")
	if err != nil {
		return nil, err
	}
	top, err := flags.GetInt("top")
	if err != nil {
		return nil, err
	}
	lenient, err := flags.GetBool("lenient")
	if err != nil {
		return nil, err
	}

	if data == "" {
		data = cfg.DataPath
	}
	if top < 1 {
		top = report.DefaultTop
	}
	return &report.Config{
		DataPath: data,
		Top:      top,
		Strict:   cfg.StrictLoad && !lenient,
		Timeout:  report.DefaultTimeout,
	}, nil
}
