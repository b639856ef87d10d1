package core

// ColumnSummary describes one column of a table, in the spirit of a
// dataframe info() listing.
type ColumnSummary struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Rows     int    `json:"rows"`
	NonNull  int    `json:"non_null"`
	Missing  int    `json:"missing"`
	Distinct int    `json:"distinct"`
	Levels   int    `json:"levels,omitempty"` // categorical only
}

// Summarize returns one summary per column in table order.
func Summarize(t *Table) []ColumnSummary {
	out := make([]ColumnSummary, 0, t.Width())
	for _, c := range t.Columns() {
		missing := c.MissingCount()
		out = append(out, ColumnSummary{
			Name:     c.Name,
			Kind:     c.Kind.String(),
			Rows:     c.Len(),
			NonNull:  c.Len() - missing,
			Missing:  missing,
			Distinct: c.Distinct(),
			Levels:   len(c.levels),
		})
	}
	return out
}
