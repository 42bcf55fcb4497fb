package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"programhub/internal/core"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print reports",
}

var reportBudgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Print budget utilization per program and project",
	Long: `Budget prints budget, spend and schedule progress for every program and
project, followed by the totals over projects. Use --json for machine output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			report, err := a.svc.BudgetReport(cmd.Context(), operator)
			if err != nil {
				return describe(err)
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return printBudget(cmd.OutOrStdout(), report)
		})
	},
}

func init() {
	reportBudgetCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	reportCmd.AddCommand(reportBudgetCmd)
}

var healthColors = map[core.BudgetHealth]*color.Color{
	core.BudgetNotStarted: color.New(color.FgHiBlack),
	core.BudgetOnTrack:    color.New(color.FgGreen),
	core.BudgetOver:       color.New(color.FgRed, color.Bold),
	core.BudgetCompleted:  color.New(color.FgCyan),
}

func healthLabel(h core.BudgetHealth) string {
	if c, ok := healthColors[h]; ok {
		return c.Sprint(h)
	}
	return string(h)
}

func printBudget(w io.Writer, report core.BudgetReport) error {
	fmt.Fprintf(w, "Budget report generated %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	for _, section := range []struct {
		title string
		lines []core.BudgetLine
	}{{"Programs", report.Programs}, {"Projects", report.Projects}} {
		color.New(color.Bold).Fprintln(w, section.title)
		if len(section.lines) == 0 {
			fmt.Fprintln(w, "  none")
			fmt.Fprintln(w)
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tBUDGET\tSPENT\tREMAINING\tUSED\tSCHEDULE\tHEALTH")
		for _, l := range section.lines {
			fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\t%.2f\t%.0f%%\t%.0f%%\t%s\n",
				l.Name, l.Budget, l.Spent, l.Remaining, l.Utilization*100, l.ScheduleProgress, healthLabel(l.Health))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	t := report.Totals
	fmt.Fprintf(w, "Total budget %.2f, spent %.2f, remaining %.2f (%.0f%% used)\n", t.Budget, t.Spent, t.Remaining, t.Utilization*100)
	if t.OverBudget > 0 {
		color.New(color.FgRed).Fprintf(w, "%d project(s) over budget\n", t.OverBudget)
	}
	return nil
}
