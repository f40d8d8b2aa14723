package app

import (
	"testing"
	"time"
)

func checkDelay(t *testing.T, step int, d, base time.Duration) {
	t.Helper()
	lo := time.Duration(float64(base) * 0.8)
	hi := time.Duration(float64(base) * 1.2)
	if d < lo || d > hi {
		t.Errorf("step %d: delay %v outside [%v, %v]", step, d, lo, hi)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 350*time.Millisecond)

	want := []time.Duration{100, 200, 350, 350}
	for i, base := range want {
		checkDelay(t, i, b.Next(), base*time.Millisecond)
	}

	b.Reset()
	checkDelay(t, len(want), b.Next(), 100*time.Millisecond)
}

func TestBackoffDefaults(t *testing.T) {
	b := newBackoff(0, 0)
	checkDelay(t, 0, b.Next(), DefaultBackoffInitial)
	checkDelay(t, 1, b.Next(), DefaultBackoffInitial)
}
