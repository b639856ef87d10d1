package core

import "fmt"

// Kind is the semantic type a column carries.
type Kind int

const (
	KindRaw Kind = iota
	KindDate
	KindFloat
	KindNullableInt
	KindBinaryInt
	KindCategorical
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "string"
	case KindDate:
		return "date"
	case KindFloat:
		return "float"
	case KindNullableInt:
		return "nullable_int"
	case KindBinaryInt:
		return "binary_int"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RuleKind selects the coercion applied to a catalog column.
type RuleKind int

const (
	RuleDate RuleKind = iota
	RuleFloat
	RulePrefixFloat
	RuleNullableInt
	RuleBinaryInt
	RuleCategorical
)

// ruleOrder is the fixed order in which rule groups run.
var ruleOrder = []RuleKind{
	RuleDate,
	RuleFloat,
	RulePrefixFloat,
	RuleNullableInt,
	RuleBinaryInt,
	RuleCategorical,
}

// String returns the lowercase name of the rule kind.
func (r RuleKind) String() string {
	switch r {
	case RuleDate:
		return "date"
	case RuleFloat:
		return "float"
	case RulePrefixFloat:
		return "prefix_float"
	case RuleNullableInt:
		return "nullable_int"
	case RuleBinaryInt:
		return "binary_int"
	case RuleCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Target returns the column kind a rule produces.
func (r RuleKind) Target() Kind {
	switch r {
	case RuleDate:
		return KindDate
	case RuleFloat, RulePrefixFloat:
		return KindFloat
	case RuleNullableInt:
		return KindNullableInt
	case RuleBinaryInt:
		return KindBinaryInt
	case RuleCategorical:
		return KindCategorical
	default:
		return KindRaw
	}
}

// ColumnRule binds one column name to a coercion.
type ColumnRule struct {
	Column string   `json:"column"`
	Kind   RuleKind `json:"kind"`
	Prefix string   `json:"prefix,omitempty"` // Stripped before parsing for RulePrefixFloat
}

// MarshalText lets rule kinds render by name in JSON payloads.
func (r RuleKind) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a rule kind name produced by MarshalText.
func (r *RuleKind) UnmarshalText(b []byte) error {
	for _, k := range ruleOrder {
		if k.String() == string(b) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown rule kind %q", b)
}

// Catalog is a named set of column rules for one dataset layout.
type Catalog struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Rules       []ColumnRule `json:"rules"`
}

// Validate checks that the catalog has a name and that no column is claimed
// by more than one rule.
func (c Catalog) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("catalog name is required")
	}
	seen := make(map[string]RuleKind, len(c.Rules))
	for i, r := range c.Rules {
		if r.Column == "" {
			return fmt.Errorf("catalog %s: rule %d has no column", c.Name, i)
		}
		if prev, ok := seen[r.Column]; ok {
			return fmt.Errorf("catalog %s: column %q has both %s and %s rules", c.Name, r.Column, prev, r.Kind)
		}
		seen[r.Column] = r.Kind
	}
	return nil
}

// ColumnsFor returns the catalog columns for one rule kind, in declaration order.
func (c Catalog) ColumnsFor(kind RuleKind) []ColumnRule {
	var out []ColumnRule
	for _, r := range c.Rules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
