package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bitfantasy/vgp/internal/vgp/service"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

var (
	dueWindow int
	dueXLSX   string
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List controls overdue or due soon",
	RunE:  runDue,
}

func init() {
	dueCmd.Flags().IntVar(&dueWindow, "window", 0, "Due-soon window in days (0 = configured default)")
	dueCmd.Flags().StringVar(&dueXLSX, "xlsx", "", "Write the list to this xlsx file instead of stdout")
}

var (
	dueHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dueOverdueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dueSoonStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dueColumnWidths = []int{14, 28, 24, 12, 10, 8}
)

func runDue(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer a.close()

	if dueXLSX != "" {
		f, err := os.Create(dueXLSX)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := a.svc.Schedule.ExportDue(cmd.Context(), dueWindow, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dueXLSX)
		return nil
	}

	items, err := a.svc.Schedule.GetOverdueAndDueSoon(cmd.Context(), dueWindow)
	if err != nil {
		return err
	}
	printDue(cmd.OutOrStdout(), items)
	return nil
}

func printDue(w io.Writer, items []service.DueItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing overdue or due soon.")
		return
	}
	fmt.Fprintln(w, dueRow(dueHeaderStyle, "ASSET", "NAME", "CONTROL", "DUE", "STATE", "DAYS"))
	for _, it := range items {
		style := dueSoonStyle
		if it.State == workflow.DueStateOverdue {
			style = dueOverdueStyle
		}
		fmt.Fprintln(w, dueRow(style,
			it.AssetCode,
			it.AssetName,
			it.ControlLabel,
			it.NextDueAt.Format("2006-01-02"),
			it.State,
			fmt.Sprintf("%d", it.DaysLeft),
		))
	}
}

func dueRow(style lipgloss.Style, cols ...string) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = style.Copy().Width(dueColumnWidths[i]).MaxWidth(dueColumnWidths[i]).Render(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}
