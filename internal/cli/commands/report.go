package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"shareledger/internal/core"
	"shareledger/internal/report"
	"shareledger/internal/worker"
)

func (cli *CLI) newReportCmd() *cobra.Command {
	var printReport bool
	cmd := &cobra.Command{
		Use:   "report [PERIOD]",
		Short: "Generate the report for a month (YYYY-MM), defaults to the current month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := cli.now().Format("2006-01")
			if len(args) == 1 {
				period = strings.TrimSpace(args[0])
			}
			if !core.ValidPeriod(period) {
				return fmt.Errorf("%w: %q (want YYYY-MM)", core.ErrInvalidPeriod, period)
			}

			env, err := cli.environment(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := env.Reports.PeriodSummary(cmd.Context(), period)
			if err != nil {
				return err
			}
			path, err := env.Writer.WritePeriod(summary)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Report generated at: %s\n", path)

			overview, err := env.Reports.Overview(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeOverview(env.Writer, overview); err != nil {
				return err
			}
			if !printReport {
				return nil
			}
			md, err := report.RenderPeriod(summary)
			if err != nil {
				return err
			}
			return cli.printMarkdown(cmd.OutOrStdout(), md)
		},
	}
	cmd.Flags().BoolVar(&printReport, "print", false, "Also print the report to the terminal")
	return cmd
}

func (cli *CLI) newOverviewCmd() *cobra.Command {
	var printReport bool
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Generate the overview of every month and the reports index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.environment(cmd.Context())
			if err != nil {
				return err
			}
			overview, err := env.Reports.Overview(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeOverview(env.Writer, overview); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Overview generated for %d month(s)\n", len(overview.Periods))
			if !printReport {
				return nil
			}
			md, err := report.RenderOverview(overview)
			if err != nil {
				return err
			}
			return cli.printMarkdown(cmd.OutOrStdout(), md)
		},
	}
	cmd.Flags().BoolVar(&printReport, "print", false, "Also print the overview to the terminal")
	return cmd
}

func (cli *CLI) newRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Rewrite the report of every month, the overview and the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.environment(cmd.Context())
			if err != nil {
				return err
			}
			res, err := worker.NewReportWorker(env.Reports, env.Writer, env.Logger).RegenerateAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d report(s) regenerated in %s\n", len(res.Periods), env.Writer.Dir())
			return nil
		},
	}
}

func (cli *CLI) newPeriodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List the months that have records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.environment(cmd.Context())
			if err != nil {
				return err
			}
			periods, err := env.Reports.Periods(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range periods {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func writeOverview(w *report.Writer, overview core.OverviewSummary) error {
	if _, err := w.WriteOverview(overview); err != nil {
		return err
	}
	_, err := w.WriteIndex()
	return err
}

func (cli *CLI) printMarkdown(out io.Writer, md string) error {
	rendered, err := cli.print(md)
	if err != nil {
		return fmt.Errorf("render for terminal: %w", err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}
