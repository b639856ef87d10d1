package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/ratingprep/internal/core"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderSummary prints one line per column, like a dataframe info() listing.
func renderSummary(w io.Writer, rows int, cols []core.ColumnSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%d rows x %d columns", rows, len(cols)))
	t.AppendHeader(table.Row{"#", "Column", "Kind", "Non-Null", "Missing", "Distinct"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	for i, c := range cols {
		t.AppendRow(table.Row{i, c.Name, c.Kind, c.NonNull, c.Missing, c.Distinct})
	}
	t.Render()
}

// renderReport prints the rules a clean run applied and what it dropped.
func renderReport(w io.Writer, r core.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("catalog " + r.Catalog)
	t.AppendHeader(table.Row{"Column", "Rule", "From", "To", "Newly Missing"})

	for _, c := range r.Columns {
		if !c.Applied {
			continue
		}
		t.AppendRow(table.Row{c.Column, c.Rule.String(), c.From, c.To, c.Missing})
	}
	t.Render()

	if len(r.Absent) > 0 {
		_, _ = fmt.Fprintf(w, "absent: %s\n", strings.Join(r.Absent, ", "))
	}
	if len(r.Dropped) > 0 {
		_, _ = fmt.Fprintf(w, "dropped (all missing): %s\n", strings.Join(r.Dropped, ", "))
	}
}

// renderCatalogs lists catalogs with rule counts per group.
func renderCatalogs(w io.Writer, cats []core.Catalog) {
	if len(cats) == 0 {
		_, _ = fmt.Fprintln(w, "(no catalogs registered)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Rules", "Date", "Float", "Int", "Binary", "Categorical", "Description"})

	for _, c := range cats {
		t.AppendRow(table.Row{
			c.Name,
			len(c.Rules),
			len(c.ColumnsFor(core.RuleDate)),
			len(c.ColumnsFor(core.RuleFloat)) + len(c.ColumnsFor(core.RulePrefixFloat)),
			len(c.ColumnsFor(core.RuleNullableInt)),
			len(c.ColumnsFor(core.RuleBinaryInt)),
			len(c.ColumnsFor(core.RuleCategorical)),
			c.Description,
		})
	}
	t.Render()
}
