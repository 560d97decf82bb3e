package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetCacheEntries(t *testing.T) {
	// Reset metrics before test
	CacheEntries.Reset()

	SetCacheEntries("user", 3)
	count := testutil.ToFloat64(CacheEntries.WithLabelValues("user"))
	if count != 3.0 {
		t.Errorf("Expected count to be 3.0, got %f", count)
	}

	// Gauge is set, not incremented
	SetCacheEntries("user", 2)
	count = testutil.ToFloat64(CacheEntries.WithLabelValues("user"))
	if count != 2.0 {
		t.Errorf("Expected count to be 2.0, got %f", count)
	}

	SetCacheEntries("battle", 1)
	count = testutil.ToFloat64(CacheEntries.WithLabelValues("battle"))
	if count != 1.0 {
		t.Errorf("Expected count to be 1.0 for battle, got %f", count)
	}
}

func TestSetDirtyEntries(t *testing.T) {
	DirtyEntries.Reset()

	SetDirtyEntries("message", 5)
	count := testutil.ToFloat64(DirtyEntries.WithLabelValues("message"))
	if count != 5.0 {
		t.Errorf("Expected count to be 5.0, got %f", count)
	}

	SetDirtyEntries("message", 0)
	count = testutil.ToFloat64(DirtyEntries.WithLabelValues("message"))
	if count != 0.0 {
		t.Errorf("Expected count to be 0.0 after flush, got %f", count)
	}
}

func TestRecordFlushError(t *testing.T) {
	FlushErrorsTotal.Reset()

	RecordFlushError("world")
	RecordFlushError("world")
	count := testutil.ToFloat64(FlushErrorsTotal.WithLabelValues("world"))
	if count != 2.0 {
		t.Errorf("Expected count to be 2.0, got %f", count)
	}
}

func TestRecordShotFired(t *testing.T) {
	ShotsFiredTotal.Reset()

	RecordShotFired("attacker")
	RecordShotFired("attacker")
	RecordShotFired("attackee")

	count := testutil.ToFloat64(ShotsFiredTotal.WithLabelValues("attacker"))
	if count != 2.0 {
		t.Errorf("Expected attacker count to be 2.0, got %f", count)
	}
	count = testutil.ToFloat64(ShotsFiredTotal.WithLabelValues("attackee"))
	if count != 1.0 {
		t.Errorf("Expected attackee count to be 1.0, got %f", count)
	}
}

func TestSetActiveBattles(t *testing.T) {
	SetActiveBattles(4)
	count := testutil.ToFloat64(ActiveBattles)
	if count != 4.0 {
		t.Errorf("Expected count to be 4.0, got %f", count)
	}

	SetActiveBattles(0)
	count = testutil.ToFloat64(ActiveBattles)
	if count != 0.0 {
		t.Errorf("Expected count to be 0.0, got %f", count)
	}
}
