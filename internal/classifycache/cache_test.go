package classifycache

import (
	"testing"

	"ntcstep/internal/engine"
	"ntcstep/internal/stepmetrics"
	"ntcstep/pkg/names"
)

func TestKeyForMetricsIsDeterministic(t *testing.T) {
	m := stepmetrics.Metrics{CC: 5, NN: 6, Mu: 0.5}
	m.Torsions[0] = 1.23
	k1 := KeyForMetrics(m)
	k2 := KeyForMetrics(m)
	if k1 != k2 {
		t.Fatalf("expected identical metrics to hash to the same key, got %v vs %v", k1, k2)
	}
}

func TestKeyForMetricsDiffersOnTorsionChange(t *testing.T) {
	m1 := stepmetrics.Metrics{CC: 5, NN: 6, Mu: 0.5}
	m2 := m1
	m2.Torsions[3] += 1e-9
	if KeyForMetrics(m1) == KeyForMetrics(m2) {
		t.Fatal("expected a tiny torsion difference to change the cache key")
	}
}

func TestInMemoryCacheRoundTrip(t *testing.T) {
	c := New("", "", 0)
	defer c.Close()

	key := KeyForMetrics(stepmetrics.Metrics{CC: 1, NN: 2, Mu: 3})
	want := engine.ClassifiedStep{AssignedNtC: names.NtCAA00, Confal: 87}

	if _, ok := c.Get(key); ok {
		t.Fatal("expected a miss before any Put")
	}

	c.Put(key, want)
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if got.AssignedNtC != want.AssignedNtC || got.Confal != want.Confal {
		t.Fatalf("expected the cached value to round-trip, got %+v", got)
	}
	if c.Len() != 1 {
		t.Fatalf("expected one live entry, got %d", c.Len())
	}
}

func TestCacheDistinctKeysDoNotCollide(t *testing.T) {
	c := New("", "", 0)
	defer c.Close()

	k1 := KeyForMetrics(stepmetrics.Metrics{CC: 1})
	k2 := KeyForMetrics(stepmetrics.Metrics{CC: 2})
	c.Put(k1, engine.ClassifiedStep{AssignedNtC: names.NtCAA00})
	c.Put(k2, engine.ClassifiedStep{AssignedNtC: names.NtCInvalid})

	got1, _ := c.Get(k1)
	got2, _ := c.Get(k2)
	if got1.AssignedNtC == got2.AssignedNtC {
		t.Fatal("expected distinct keys to store distinct values")
	}
}
