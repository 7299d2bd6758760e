package plume

import "testing"

func TestAddPhaseRejectsInvertedInterval(t *testing.T) {
	s := NewReleaseSchedule()
	err := s.AddPhase(Phase{StartDay: 5, EndDay: 5, Total: 1, Unit: "GBq"})
	if err == nil {
		t.Fatal("expected an error for a zero-length phase")
	}
	if !isConfigurationError(err) {
		t.Errorf("expected a ConfigurationError, got %T", err)
	}
}

func TestAddPhaseRejectsOverlap(t *testing.T) {
	s := NewReleaseSchedule()
	if err := s.AddPhase(Phase{StartDay: 0, EndDay: 5, Total: 1, Unit: "GBq"}); err != nil {
		t.Fatal(err)
	}
	err := s.AddPhase(Phase{StartDay: 4, EndDay: 6, Total: 1, Unit: "GBq"})
	if err == nil {
		t.Fatal("expected an error for an overlapping phase")
	}
}

func TestAddPhaseKeepsSortedOrder(t *testing.T) {
	s := NewReleaseSchedule()
	s.AddPhase(Phase{StartDay: 10, EndDay: 12, Total: 1, Unit: "GBq"})
	s.AddPhase(Phase{StartDay: 0, EndDay: 2, Total: 1, Unit: "GBq"})
	s.AddPhase(Phase{StartDay: 5, EndDay: 7, Total: 1, Unit: "GBq"})
	phases := s.Phases()
	for i := 1; i < len(phases); i++ {
		if phases[i].StartDay < phases[i-1].StartDay {
			t.Fatalf("phases not sorted: %v", phases)
		}
	}
}

func TestRateAtOutsideAnyPhase(t *testing.T) {
	s := NewReleaseSchedule()
	s.AddPhase(Phase{StartDay: 0, EndDay: 2, Total: 10, Unit: "GBq"})
	rate, phase := s.RateAt(5)
	if rate != 0 || phase != nil {
		t.Errorf("RateAt(5) = (%v, %v), want (0, nil)", rate, phase)
	}
}

func TestAdvanceConservesTotalRelease(t *testing.T) {
	s := NewReleaseSchedule()
	if err := s.AddPhase(Phase{StartDay: 0, EndDay: 10, Total: 1000, Unit: "GBq"}); err != nil {
		t.Fatal(err)
	}
	capacity := 1000
	var released int
	const step = 0.1
	// 100 steps of 0.1 days cover the phase. Counting steps avoids the
	// drift of repeated day += step, which leaves day just under 10
	// and adds a 101st step inside the phase.
	for i := 0; i < 100; i++ {
		released += s.Advance(float64(i)*step, step, capacity)
	}
	// The schedule's 1000 GBq total, spread over 1000 particles, should
	// release very close to all of them by the end of the phase.
	if released < capacity-1 || released > capacity {
		t.Errorf("released = %d, want close to %d", released, capacity)
	}
}

func TestUnitsPerParticleZeroCapacity(t *testing.T) {
	s := NewReleaseSchedule()
	s.AddPhase(Phase{StartDay: 0, EndDay: 1, Total: 10, Unit: "GBq"})
	if got := s.UnitsPerParticle(0); got != 0 {
		t.Errorf("UnitsPerParticle(0) = %v, want 0", got)
	}
}

func TestBaseUnitConversion(t *testing.T) {
	p := Phase{StartDay: 0, EndDay: 1, Total: 1000, Unit: "Bq"}
	if got := p.totalBaseUnit(); got != 1000*1e-9 {
		t.Errorf("totalBaseUnit() = %v, want %v", got, 1000*1e-9)
	}
}
