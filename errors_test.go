package plume

import (
	"errors"
	"fmt"
	"testing"

	"github.com/oceantracer/plume/grid"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{configurationErrorf("field", "bad"), 2},
		{grid.ErrDataUnavailable, 3},
		{grid.ErrCorruptBinary, 4},
		{grid.ErrUnsupportedFormat, 4},
		{ErrCancelled, 5},
		{errors.New("boom"), 1},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestConfigurationErrorUnwraps(t *testing.T) {
	err := configurationErrorf("tracer_id", "unknown tracer %q", "xyz")
	if !errors.Is(err, ErrConfiguration) {
		t.Error("configurationErrorf's result should unwrap to ErrConfiguration")
	}
}

func TestWrappedDataUnavailableStillRecognized(t *testing.T) {
	wrapped := fmt.Errorf("reading day file: %w", grid.ErrDataUnavailable)
	if !isDataUnavailable(wrapped) {
		t.Error("errors.Is should see through an fmt.Errorf(%w, ...) wrap")
	}
}
