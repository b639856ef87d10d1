package catalogs

import (
	"testing"

	"github.com/JonMunkholm/ratingprep/internal/core"
)

func TestInsuranceCatalog(t *testing.T) {
	cat, err := core.GetCatalog(InsuranceCatalog)
	if err != nil {
		t.Fatalf("GetCatalog() error = %v", err)
	}
	if err := cat.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	counts := map[core.RuleKind]int{
		core.RuleDate:        2,
		core.RuleFloat:       1,
		core.RulePrefixFloat: 1,
		core.RuleNullableInt: 5,
		core.RuleBinaryInt:   8,
		core.RuleCategorical: 24,
	}
	for kind, want := range counts {
		if got := len(cat.ColumnsFor(kind)); got != want {
			t.Errorf("%s columns = %d, want %d", kind, got, want)
		}
	}

	excess := cat.ColumnsFor(core.RulePrefixFloat)[0]
	if excess.Column != "ExcessSelected" || excess.Prefix != "R" {
		t.Errorf("prefix rule = %+v", excess)
	}
	for _, r := range cat.Rules {
		if r.Column == "Country" {
			t.Error("Country should not carry a rule")
		}
	}
}
