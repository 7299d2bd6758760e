package plume

import (
	"testing"

	"github.com/ctessum/unit"
)

func TestDefaultRegistryLookup(t *testing.T) {
	reg := DefaultRegistry()
	for _, id := range []string{"cs137", "crude_oil", "microplastic", "generic_pollutant", "larval_cohort"} {
		if _, err := reg.Lookup(id); err != nil {
			t.Errorf("Lookup(%q): %v", id, err)
		}
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.Lookup("does-not-exist")
	if err == nil {
		t.Fatal("expected an error for an unknown tracer")
	}
	if !isConfigurationError(err) {
		t.Errorf("expected a ConfigurationError, got %T: %v", err, err)
	}
}

func TestRegistryRegisterOverrides(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Descriptor{ID: "x", Name: "first"})
	reg.Register(&Descriptor{ID: "x", Name: "second"})
	d, err := reg.Lookup("x")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "second" {
		t.Errorf("Register should replace an existing entry, got %q", d.Name)
	}
}

func TestTaxonomicTypeString(t *testing.T) {
	cases := map[TaxonomicType]string{
		Radionuclide: "radionuclide",
		Hydrocarbon:  "hydrocarbon",
		Particulate:  "particulate",
		Pollutant:    "pollutant",
		Biological:   "biological",
		TaxonomicType(99): "unknown",
	}
	for tt, want := range cases {
		if got := tt.String(); got != want {
			t.Errorf("TaxonomicType(%d).String() = %q, want %q", tt, got, want)
		}
	}
}

func TestDimensionsForRadionuclideIsDimensionless(t *testing.T) {
	activity := unit.New(1, dimensionsFor(Radionuclide))
	dimless := unit.New(1, unit.Dimless)
	if !unit.DimensionsMatch(activity, dimless) {
		t.Error("radionuclide quantities should be tracked as dimensionless, not a custom Bq dimension")
	}
	mass := unit.New(1, dimensionsFor(Hydrocarbon))
	kg := unit.New(1, unit.Kilogram)
	if !unit.DimensionsMatch(mass, kg) {
		t.Error("non-radionuclide quantities should be tracked as a mass")
	}
}
