package catalogs

import "github.com/JonMunkholm/ratingprep/internal/core"

func init() {
	registerInsurance()
}

// InsuranceCatalog is the name of the motor insurance rating catalog.
const InsuranceCatalog = "insurance"

func registerInsurance() {
	rules := []core.ColumnRule{
		{Column: "TransactionMonth", Kind: core.RuleDate},
		{Column: "VehicleIntroDate", Kind: core.RuleDate},

		{Column: "CapitalOutstanding", Kind: core.RuleFloat},
		{Column: "ExcessSelected", Kind: core.RulePrefixFloat, Prefix: "R"},

		{Column: "Cylinders", Kind: core.RuleNullableInt},
		{Column: "NumberOfDoors", Kind: core.RuleNullableInt},
		{Column: "mmcode", Kind: core.RuleNullableInt},
		{Column: "RegistrationYear", Kind: core.RuleNullableInt},
		{Column: "PostalCode", Kind: core.RuleNullableInt},
	}

	for _, col := range []string{
		"AlarmImmobiliser", "TrackingDevice", "NewVehicle", "WrittenOff",
		"Rebuilt", "Converted", "CrossBorder", "IsVATRegistered",
	} {
		rules = append(rules, core.ColumnRule{Column: col, Kind: core.RuleBinaryInt})
	}

	for _, col := range []string{
		// Policy holder
		"Citizenship", "LegalType", "Title", "Language", "Bank", "AccountType",
		"MaritalStatus", "Gender",
		// Location
		"Province", "MainCrestaZone", "SubCrestaZone",
		// Vehicle
		"ItemType", "VehicleType", "make", "Model", "bodytype",
		// Cover
		"TermFrequency", "CoverCategory", "CoverType", "CoverGroup", "Section",
		"Product", "StatutoryClass", "StatutoryRiskType",
	} {
		rules = append(rules, core.ColumnRule{Column: col, Kind: core.RuleCategorical})
	}

	core.Register(core.Catalog{
		Name:        InsuranceCatalog,
		Description: "Motor insurance rating export (policy, vehicle, cover and claims columns)",
		Rules:       rules,
	})
}
