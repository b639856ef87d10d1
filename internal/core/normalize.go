package core

// normalize.go applies a catalog of per-column coercion rules to a Table.
//
// Rule groups always run in the same order: date, float, prefix float,
// nullable int, binary int, categorical. After the rules, columns in which
// every cell is missing are dropped. Individual cells that fail to coerce
// become missing; a bad cell never aborts the column or the run.
//
// A column already holding its rule's target kind is left untouched, which
// makes Clean idempotent.

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ratingprep/internal/logging"
)

// DefaultCategoryThreshold is the distinct-to-rows ratio under which an
// already-typed catalog column is still promoted to categorical. It is a
// best-effort heuristic for enumerations that were inferred as numbers
// upstream, not a correctness guarantee.
const DefaultCategoryThreshold = 0.10

// ColumnReport describes what one rule did to one column.
type ColumnReport struct {
	Column  string   `json:"column"`
	Rule    RuleKind `json:"rule"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Missing int      `json:"newly_missing"` // cells that became missing through coercion
	Applied bool     `json:"applied"`
}

// Report summarizes a Clean run.
type Report struct {
	Catalog  string         `json:"catalog"`
	Columns  []ColumnReport `json:"columns"`
	Absent   []string       `json:"absent,omitempty"`  // catalog columns not present in the table
	Dropped  []string       `json:"dropped,omitempty"` // all-missing columns removed
	Rows     int            `json:"rows"`
	Duration time.Duration  `json:"duration_ns"`
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithCategoryThreshold overrides DefaultCategoryThreshold.
// Values outside (0, 1] are ignored.
func WithCategoryThreshold(f float64) NormalizerOption {
	return func(n *Normalizer) {
		if f > 0 && f <= 1 {
			n.threshold = f
		}
	}
}

// Normalizer applies one catalog to tables.
type Normalizer struct {
	catalog   Catalog
	threshold float64
}

// NewNormalizer creates a Normalizer for the catalog.
func NewNormalizer(cat Catalog, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{catalog: cat, threshold: DefaultCategoryThreshold}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Catalog returns the catalog the normalizer applies.
func (n *Normalizer) Catalog() Catalog { return n.catalog }

// Threshold returns the categorical promotion ratio in use.
func (n *Normalizer) Threshold() float64 { return n.threshold }

// coerceFunc rebuilds column c according to rule.
type coerceFunc func(c *Column, rule ColumnRule)

// coercers is the dispatch table for every non-categorical rule kind.
var coercers = map[RuleKind]coerceFunc{
	RuleDate: func(c *Column, _ ColumnRule) {
		cells := c.Strings()
		out := make([]pgtype.Timestamp, len(cells))
		for i, s := range cells {
			out[i] = ToDate(s)
		}
		c.setTimes(out)
	},
	RuleFloat: func(c *Column, _ ColumnRule) {
		cells := c.Strings()
		out := make([]pgtype.Float8, len(cells))
		for i, s := range cells {
			out[i] = ToFloat(s)
		}
		c.setFloats(out)
	},
	RulePrefixFloat: func(c *Column, rule ColumnRule) {
		cells := c.Strings()
		out := make([]pgtype.Float8, len(cells))
		for i, s := range cells {
			out[i] = ToPrefixedFloat(s, rule.Prefix)
		}
		c.setFloats(out)
	},
	RuleNullableInt: func(c *Column, _ ColumnRule) {
		cells := c.Strings()
		out := make([]pgtype.Int8, len(cells))
		for i, s := range cells {
			out[i] = ToNullableInt(s)
		}
		c.setInts(KindNullableInt, out)
	},
	RuleBinaryInt: func(c *Column, _ ColumnRule) {
		cells := c.Strings()
		out := make([]pgtype.Int8, len(cells))
		for i, s := range cells {
			out[i] = ToBinaryInt(s)
		}
		c.setInts(KindBinaryInt, out)
	},
}

// Clean applies the catalog to t in place and returns t.
// The only errors are a nil table and a cancelled context.
func (n *Normalizer) Clean(ctx context.Context, t *Table) (*Table, Report, error) {
	report := Report{Catalog: n.catalog.Name}
	if t == nil {
		return nil, report, errors.New("clean: nil table")
	}
	start := time.Now()
	logger := logging.FromContext(ctx).With("catalog", n.catalog.Name)
	logger.Info("cleaning table", "rows", t.Len(), "columns", t.Width())

	report.Rows = t.Len()
	for _, kind := range ruleOrder {
		if err := ctx.Err(); err != nil {
			return t, report, err
		}
		for _, rule := range n.catalog.ColumnsFor(kind) {
			col, ok := t.Column(rule.Column)
			if !ok {
				report.Absent = append(report.Absent, rule.Column)
				continue
			}
			cr := n.apply(col, rule, t.Len())
			report.Columns = append(report.Columns, cr)
			if cr.Applied {
				logger.Debug("column coerced",
					"column", cr.Column,
					"rule", cr.Rule.String(),
					"from", cr.From,
					"to", cr.To,
					"newly_missing", cr.Missing,
				)
			}
		}
	}

	report.Dropped = DropEmptyColumns(t)
	report.Duration = time.Since(start)

	logger.Info("table cleaned",
		"columns", t.Width(),
		"coerced", len(report.Columns),
		"absent", len(report.Absent),
		"dropped", len(report.Dropped),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return t, report, nil
}

// apply runs one rule on one column.
func (n *Normalizer) apply(col *Column, rule ColumnRule, rows int) ColumnReport {
	cr := ColumnReport{Column: col.Name, Rule: rule.Kind, From: col.Kind.String(), To: col.Kind.String()}
	before := col.MissingCount()

	switch {
	case col.Kind == rule.Kind.Target():
		return cr
	case rule.Kind == RuleCategorical:
		if col.Kind != KindRaw && !n.lowCardinality(col, rows) {
			return cr
		}
		col.categorize()
	default:
		coerce, ok := coercers[rule.Kind]
		if !ok {
			return cr
		}
		coerce(col, rule)
	}

	cr.Applied = true
	cr.To = col.Kind.String()
	cr.Missing = col.MissingCount() - before
	return cr
}

// lowCardinality reports whether a typed column's distinct-value count is
// under the threshold share of rows.
func (n *Normalizer) lowCardinality(col *Column, rows int) bool {
	if rows == 0 {
		return false
	}
	return float64(col.Distinct()) < n.threshold*float64(rows)
}

// DropEmptyColumns removes every column whose cells are all missing and
// returns the removed names in table order. A table without rows keeps its
// columns.
func DropEmptyColumns(t *Table) []string {
	if t.Len() == 0 {
		return nil
	}
	var empty []string
	for _, c := range t.Columns() {
		if c.AllMissing() {
			empty = append(empty, c.Name)
		}
	}
	t.Drop(empty...)
	return empty
}
