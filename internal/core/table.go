package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is an ordered set of named columns with a uniform row count.
// The normalizer mutates a Table in place; it is not safe for concurrent use.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable builds a raw table from a header and data rows.
// Every row must have exactly len(header) cells. Names are kept verbatim,
// except blank ones which become "Unnamed: <position>". Duplicate names are
// rejected.
func NewTable(header []string, rows [][]string) (*Table, error) {
	names := make([]string, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		names[i] = h
	}

	cells := make([][]string, len(names))
	for j := range cells {
		cells[j] = make([]string, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d fields, expected %d", ErrParse, i+1, len(row), len(names))
		}
		for j, v := range row {
			cells[j][i] = v
		}
	}

	cols := make([]*Column, len(names))
	for j, name := range names {
		cols[j] = NewRawColumn(name, cells[j])
	}
	return NewTableFromColumns(cols...)
}

// NewTableFromColumns assembles a table from prebuilt columns.
// Columns must share one length and have unique names.
func NewTableFromColumns(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrParse, c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Header returns the column names in order.
func (t *Table) Header() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// Record renders row i as strings in column order.
func (t *Table) Record(i int) []string {
	out := make([]string, len(t.columns))
	for j, c := range t.columns {
		out[j] = c.String(i)
	}
	return out
}

// Drop removes the named columns, keeping the order of the rest.
// Unknown names are ignored. Returns the number of columns removed.
func (t *Table) Drop(names ...string) int {
	if len(names) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	kept := t.columns[:0]
	removed := 0
	for _, c := range t.columns {
		if _, ok := drop[c.Name]; ok {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(t.columns); i++ {
		t.columns[i] = nil
	}
	t.columns = kept

	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
	return removed
}
