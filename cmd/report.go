package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"supplychain/internal/usecase/loader"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func renderReport(w io.Writer, report []loader.TableCount) error {
	rows := make([][]string, 0, len(report))
	for _, c := range report {
		rows = append(rows, []string{c.Table, strconv.FormatInt(c.Rows, 10)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TABLE", "ROWS").
		Rows(rows...)

	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render("Verification"), t.Render())
	return err
}

func renderResults(w io.Writer, results []loader.Result) error {
	if len(results) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Table,
			string(r.Status),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Duplicates),
			formatOrphans(r.Orphans),
			r.Reason,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TABLE", "STATUS", "ROWS", "DUPLICATES", "ORPHANS", "REASON").
		Rows(rows...)

	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render("Load"), t.Render())
	return err
}

func formatOrphans(orphans map[string]int) string {
	if len(orphans) == 0 {
		return dimStyle.Render("-")
	}
	cols := make([]string, 0, len(orphans))
	for col := range orphans {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s=%d", col, orphans[col])
	}
	return strings.Join(parts, " ")
}
