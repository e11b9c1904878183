package engine

import (
	"fmt"
	"testing"

	"github.com/starford/raido/internal/models"
)

func TestBucketKey_StableForNearbyViewports(t *testing.T) {
	a := BucketKey(52.50, 13.40, 52.51, 13.41, 14)
	b := BucketKey(52.5001, 13.4001, 52.5101, 13.4101, 14)
	if a != b {
		t.Errorf("nearby viewports bucketed apart: %q vs %q", a, b)
	}
}

func TestBucketKey_ZoomSeparates(t *testing.T) {
	a := BucketKey(52.50, 13.40, 52.51, 13.41, 14)
	b := BucketKey(52.50, 13.40, 52.51, 13.41, 15)
	if a == b {
		t.Errorf("different zooms share bucket %q", a)
	}
}

func TestQueryCache_RoundTrip(t *testing.T) {
	qc := NewQueryCache(4)
	batch := []models.Point{{ID: "a"}, {ID: "b"}}
	key := BucketKey(0, 0, 1, 1, 12)

	if _, ok := qc.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	qc.Put(key, batch)
	got, ok := qc.Get(key)
	if !ok || len(got) != 2 {
		t.Errorf("Get = (%v, %v), want the cached batch", got, ok)
	}
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	qc := NewQueryCache(2)
	qc.Put("k1", nil)
	qc.Put("k2", nil)
	qc.Get("k1") // refresh k1; k2 becomes the eviction victim
	qc.Put("k3", nil)

	if _, ok := qc.Get("k2"); ok {
		t.Error("k2 should have been evicted")
	}
	if _, ok := qc.Get("k1"); !ok {
		t.Error("k1 should have survived")
	}
	if qc.Len() != 2 {
		t.Errorf("len = %d, want 2", qc.Len())
	}
}

func TestBlobCache_ByteBudgetEviction(t *testing.T) {
	bc := NewBlobCache(100)
	for i := 0; i < 5; i++ {
		if !bc.Put(fmt.Sprintf("img%d", i), make([]byte, 30)) {
			t.Fatalf("Put img%d rejected", i)
		}
	}
	if used := bc.UsedBytes(); used > 100 {
		t.Errorf("used = %d, exceeds budget", used)
	}
	// The oldest entries must be gone; the newest survives.
	if _, ok := bc.Get("img0"); ok {
		t.Error("img0 should have been evicted")
	}
	if _, ok := bc.Get("img4"); !ok {
		t.Error("img4 should be cached")
	}
}

func TestBlobCache_RejectsOversizedBlob(t *testing.T) {
	bc := NewBlobCache(10)
	if bc.Put("huge", make([]byte, 11)) {
		t.Error("oversized blob accepted")
	}
}

func TestBlobCache_OverwriteAdjustsBudget(t *testing.T) {
	bc := NewBlobCache(100)
	bc.Put("ref", make([]byte, 40))
	bc.Put("ref", make([]byte, 60))
	if used := bc.UsedBytes(); used != 60 {
		t.Errorf("used = %d, want 60 after overwrite", used)
	}
}
