package plume

import (
	"context"
	"math/rand"
	"testing"
)

func alwaysOcean(ctx context.Context, lon, lat, depthM, simDay float64) (bool, error) {
	return true, nil
}

func neverOcean(ctx context.Context, lon, lat, depthM, simDay float64) (bool, error) {
	return false, nil
}

func TestParticlePoolEmitFillsSlots(t *testing.T) {
	pool := NewParticlePool(3, -40, 50, rand.New(rand.NewSource(1)))
	for i := 0; i < 3; i++ {
		emitted, err := pool.Emit(context.Background(), "cs137", 10, 0, 0, 1, alwaysOcean)
		if err != nil {
			t.Fatal(err)
		}
		if !emitted {
			t.Fatalf("emit %d: expected emission into a free slot", i)
		}
	}
	active, everUsed := pool.Counts()
	if active != 3 || everUsed != 3 {
		t.Errorf("Counts() = (%d, %d), want (3, 3)", active, everUsed)
	}

	emitted, err := pool.Emit(context.Background(), "cs137", 10, 0, 0, 1, alwaysOcean)
	if err != nil {
		t.Fatal(err)
	}
	if emitted {
		t.Error("expected emit to report false once the pool is full")
	}
}

func TestParticlePoolEmitRejectsLand(t *testing.T) {
	pool := NewParticlePool(1, -40, 50, rand.New(rand.NewSource(1)))
	emitted, err := pool.Emit(context.Background(), "cs137", 10, 0, 0, 1, neverOcean)
	if err != nil {
		t.Fatal(err)
	}
	if emitted {
		t.Error("expected no emission when every sampled position is land")
	}
	active, _ := pool.Counts()
	if active != 0 {
		t.Errorf("active = %d, want 0", active)
	}
}

func TestParticlePoolXYRoundTrip(t *testing.T) {
	pool := NewParticlePool(1, -40, 50, nil)
	lon, lat := -39.5, 50.2
	x, y := pool.ToXY(lon, lat)
	lon2, lat2 := pool.ToLonLat(x, y)
	if diff := lon2 - lon; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("lon round-trip: got %v, want %v", lon2, lon)
	}
	if diff := lat2 - lat; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("lat round-trip: got %v, want %v", lat2, lat)
	}
}

func TestAppendTrailTruncatesAndDedupes(t *testing.T) {
	p := &Particle{}
	for i := 0; i < maxTrailLength+5; i++ {
		appendTrail(p, float64(i)*2, 0, 0)
	}
	if len(p.Trail) != maxTrailLength {
		t.Fatalf("len(Trail) = %d, want %d", len(p.Trail), maxTrailLength)
	}

	before := len(p.Trail)
	appendTrail(p, p.Trail[len(p.Trail)-1].X+0.1, 0, 0)
	if len(p.Trail) != before {
		t.Error("appendTrail should skip sub-kilometer moves")
	}
}

func TestClampf(t *testing.T) {
	if got := clampf(5, 0, 3); got != 3 {
		t.Errorf("clampf(5, 0, 3) = %v, want 3", got)
	}
	if got := clampf(-5, 0, 3); got != 0 {
		t.Errorf("clampf(-5, 0, 3) = %v, want 0", got)
	}
	if got := clampf(1, 0, 3); got != 1 {
		t.Errorf("clampf(1, 0, 3) = %v, want 1", got)
	}
}
