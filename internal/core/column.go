package core

import (
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// missingCode marks a missing cell in a categorical column.
const missingCode int32 = -1

// Column is one named, typed column of a Table.
// Exactly one storage slice is populated, selected by Kind.
type Column struct {
	Name string
	Kind Kind

	text   []pgtype.Text      // KindRaw
	times  []pgtype.Timestamp // KindDate
	floats []pgtype.Float8    // KindFloat
	ints   []pgtype.Int8      // KindNullableInt, KindBinaryInt
	codes  []int32            // KindCategorical, index into levels or missingCode
	levels []string
}

// NewRawColumn builds a string column from raw cells.
// NA markers load as missing.
func NewRawColumn(name string, cells []string) *Column {
	text := make([]pgtype.Text, len(cells))
	for i, c := range cells {
		text[i] = ToText(c)
	}
	return &Column{Name: name, Kind: KindRaw, text: text}
}

// NewDateColumn builds a date column.
func NewDateColumn(name string, values []pgtype.Timestamp) *Column {
	return &Column{Name: name, Kind: KindDate, times: values}
}

// NewFloatColumn builds a float column.
func NewFloatColumn(name string, values []pgtype.Float8) *Column {
	return &Column{Name: name, Kind: KindFloat, floats: values}
}

// NewIntColumn builds a nullable-int or binary-int column.
// Any other kind is treated as KindNullableInt.
func NewIntColumn(name string, kind Kind, values []pgtype.Int8) *Column {
	if kind != KindBinaryInt {
		kind = KindNullableInt
	}
	return &Column{Name: name, Kind: kind, ints: values}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindDate:
		return len(c.times)
	case KindFloat:
		return len(c.floats)
	case KindNullableInt, KindBinaryInt:
		return len(c.ints)
	case KindCategorical:
		return len(c.codes)
	default:
		return len(c.text)
	}
}

// IsMissing reports whether cell i holds no value.
func (c *Column) IsMissing(i int) bool {
	switch c.Kind {
	case KindDate:
		return !c.times[i].Valid
	case KindFloat:
		return !c.floats[i].Valid
	case KindNullableInt, KindBinaryInt:
		return !c.ints[i].Valid
	case KindCategorical:
		return c.codes[i] == missingCode
	default:
		return !c.text[i].Valid
	}
}

// Value returns cell i as a Go value: string, time.Time, float64 or int64.
// Missing cells return nil.
func (c *Column) Value(i int) any {
	if c.IsMissing(i) {
		return nil
	}
	switch c.Kind {
	case KindDate:
		return c.times[i].Time
	case KindFloat:
		return c.floats[i].Float64
	case KindNullableInt, KindBinaryInt:
		return c.ints[i].Int64
	case KindCategorical:
		return c.levels[c.codes[i]]
	default:
		return c.text[i].String
	}
}

// PgValue returns cell i as the pgtype value used for storage.
// Categorical cells are returned as pgtype.Text.
func (c *Column) PgValue(i int) any {
	switch c.Kind {
	case KindDate:
		return c.times[i]
	case KindFloat:
		return c.floats[i]
	case KindNullableInt, KindBinaryInt:
		return c.ints[i]
	case KindCategorical:
		if c.codes[i] == missingCode {
			return pgtype.Text{}
		}
		return pgtype.Text{String: c.levels[c.codes[i]], Valid: true}
	default:
		return c.text[i]
	}
}

// String renders cell i for delimited output. Missing renders as "".
func (c *Column) String(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	switch c.Kind {
	case KindDate:
		return FormatDate(c.times[i].Time)
	case KindFloat:
		return FormatFloat(c.floats[i].Float64)
	case KindNullableInt, KindBinaryInt:
		return strconv.FormatInt(c.ints[i].Int64, 10)
	case KindCategorical:
		return c.levels[c.codes[i]]
	default:
		return c.text[i].String
	}
}

// Strings renders every cell of the column.
func (c *Column) Strings() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.String(i)
	}
	return out
}

// Levels returns the categories of a categorical column, sorted.
// Returns nil for other kinds.
func (c *Column) Levels() []string {
	if c.Kind != KindCategorical {
		return nil
	}
	out := make([]string, len(c.levels))
	copy(out, c.levels)
	return out
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// AllMissing reports whether no cell carries a value.
// An empty column counts as all missing.
func (c *Column) AllMissing() bool {
	return c.MissingCount() == c.Len()
}

// Distinct returns the number of distinct non-missing values.
func (c *Column) Distinct() int {
	if c.Kind == KindCategorical {
		used := make(map[int32]struct{}, len(c.levels))
		for _, code := range c.codes {
			if code != missingCode {
				used[code] = struct{}{}
			}
		}
		return len(used)
	}
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			seen[c.String(i)] = struct{}{}
		}
	}
	return len(seen)
}

func (c *Column) reset(kind Kind) {
	c.Kind = kind
	c.text, c.times, c.floats, c.ints, c.codes, c.levels = nil, nil, nil, nil, nil, nil
}

func (c *Column) setTimes(values []pgtype.Timestamp) {
	c.reset(KindDate)
	c.times = values
}

func (c *Column) setFloats(values []pgtype.Float8) {
	c.reset(KindFloat)
	c.floats = values
}

func (c *Column) setInts(kind Kind, values []pgtype.Int8) {
	c.reset(kind)
	c.ints = values
}

// categorize re-tags the column as categorical. Levels are the distinct
// rendered values, ordered by the underlying value for typed columns and
// lexically for strings.
func (c *Column) categorize() {
	if c.Kind == KindCategorical {
		return
	}
	n := c.Len()
	rendered := make([]string, n)
	missing := make([]bool, n)
	index := make(map[string]int32)
	var levels []string
	var sortKeys []levelKey
	for i := 0; i < n; i++ {
		if c.IsMissing(i) {
			missing[i] = true
			continue
		}
		s := c.String(i)
		rendered[i] = s
		if _, ok := index[s]; !ok {
			index[s] = 0
			levels = append(levels, s)
			sortKeys = append(sortKeys, c.levelKey(i))
		}
	}

	order := make([]int, len(levels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sortKeys[order[a]].less(sortKeys[order[b]])
	})
	sorted := make([]string, len(levels))
	for pos, idx := range order {
		sorted[pos] = levels[idx]
		index[levels[idx]] = int32(pos)
	}

	codes := make([]int32, n)
	for i := range codes {
		if missing[i] {
			codes[i] = missingCode
			continue
		}
		codes[i] = index[rendered[i]]
	}

	c.reset(KindCategorical)
	c.codes = codes
	c.levels = sorted
}

// levelKey orders categorical levels by their underlying value.
type levelKey struct {
	num     float64
	t       time.Time
	s       string
	numeric bool
	dated   bool
}

func (c *Column) levelKey(i int) levelKey {
	switch c.Kind {
	case KindDate:
		return levelKey{t: c.times[i].Time, dated: true}
	case KindFloat:
		return levelKey{num: c.floats[i].Float64, numeric: true}
	case KindNullableInt, KindBinaryInt:
		return levelKey{num: float64(c.ints[i].Int64), numeric: true}
	default:
		return levelKey{s: c.String(i)}
	}
}

func (k levelKey) less(o levelKey) bool {
	switch {
	case k.dated && o.dated:
		return k.t.Before(o.t)
	case k.numeric && o.numeric:
		return k.num < o.num
	default:
		return k.s < o.s
	}
}
