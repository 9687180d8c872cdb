package store

import (
	"testing"

	"github.com/dw/acid/pkg/keycodec"
)

// S5: a prefix-scoped scan matches every key sharing the prefix tuple and
// none outside it, in both directions.
func TestCursorSetPrefixScopesToTuplePrefix(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("events", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	put := func(group, id string) {
		k := keycodec.Key{keycodec.Text(group), keycodec.Text(id)}
		if err := c.Put(NewRecord(group+"/"+id), PutOptions{Key: k}); err != nil {
			t.Fatalf("Put %s/%s: %v", group, id, err)
		}
	}
	put("g1", "a")
	put("g1", "b")
	put("g1", "c")
	put("g2", "a")
	put("g2", "b")

	fwd, err := c.Items(ScanOptions{Prefix: keycodec.Key{keycodec.Text("g1")}})
	if err != nil {
		t.Fatalf("forward prefix Items: %v", err)
	}
	if len(fwd) != 3 {
		t.Fatalf("expected 3 records under prefix g1, got %d: %v", len(fwd), fwd)
	}
	for _, r := range fwd {
		if r.Value.(string)[:2] != "g1" {
			t.Fatalf("unexpected record outside prefix g1: %v", r.Value)
		}
	}

	rev, err := c.Items(ScanOptions{Prefix: keycodec.Key{keycodec.Text("g1")}, Reverse: true})
	if err != nil {
		t.Fatalf("reverse prefix Items: %v", err)
	}
	if len(rev) != 3 {
		t.Fatalf("expected 3 records under prefix g1 reverse, got %d: %v", len(rev), rev)
	}
	if rev[0].Value.(string) != "g1/c" || rev[2].Value.(string) != "g1/a" {
		t.Fatalf("expected reverse order c,b,a, got %v", rev)
	}

	g2, err := c.Items(ScanOptions{Prefix: keycodec.Key{keycodec.Text("g2")}})
	if err != nil {
		t.Fatalf("g2 Items: %v", err)
	}
	if len(g2) != 2 {
		t.Fatalf("expected 2 records under prefix g2, got %d", len(g2))
	}
}

// Testable Property #3: scanning forward and reversing the result equals
// scanning in reverse directly -- the same multiset of keys either way.
func TestCursorForwardAndReverseAgree(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("nums", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := c.Puts([]any{i * 10}, PutOptions{}); err != nil {
			t.Fatalf("Puts: %v", err)
		}
	}

	fwd, err := c.Items(ScanOptions{})
	if err != nil {
		t.Fatalf("forward Items: %v", err)
	}
	rev, err := c.Items(ScanOptions{Reverse: true})
	if err != nil {
		t.Fatalf("reverse Items: %v", err)
	}
	if len(fwd) != len(rev) {
		t.Fatalf("expected equal lengths, got %d vs %d", len(fwd), len(rev))
	}
	n := len(fwd)
	for i := 0; i < n; i++ {
		if fwd[i].Key.Compare(rev[n-1-i].Key) != 0 {
			t.Fatalf("position %d: forward key %v != reversed-reverse key %v", i, fwd[i].Key, rev[n-1-i].Key)
		}
	}
}

// Batched physical entries still yield their members in correct logical
// order within a bounded forward/reverse scan.
func TestCursorWalksAcrossBatchBoundaries(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("logs", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	recs, err := c.Puts([]any{"e0", "e1", "e2", "e3", "e4"}, PutOptions{})
	if err != nil {
		t.Fatalf("Puts: %v", err)
	}
	if _, batches, _, err := c.Batch(BatchOptions{MaxRecs: 2}); err != nil || batches != 3 {
		t.Fatalf("Batch: batches=%d err=%v", batches, err)
	}

	fwd, err := c.Items(ScanOptions{})
	if err != nil {
		t.Fatalf("forward Items across batches: %v", err)
	}
	if len(fwd) != 5 {
		t.Fatalf("expected 5 logical records across batch boundaries, got %d", len(fwd))
	}
	for i, want := range []string{"e0", "e1", "e2", "e3", "e4"} {
		if fwd[i].Value.(string) != want || fwd[i].Key.Compare(recs[i].Key) != 0 {
			t.Fatalf("position %d: expected %q, got %v", i, want, fwd[i].Value)
		}
	}

	rev, err := c.Items(ScanOptions{Reverse: true})
	if err != nil {
		t.Fatalf("reverse Items across batches: %v", err)
	}
	if len(rev) != 5 || rev[0].Value.(string) != "e4" || rev[4].Value.(string) != "e0" {
		t.Fatalf("unexpected reverse order across batches: %v", rev)
	}
}

// SetExact yields exactly zero or one result, never more, regardless of
// whether the key is present.
func TestCursorSetExactYieldsAtMostOne(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("things", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if err := c.PutItems(map[any]any{"present": "value"}, nil); err != nil {
		t.Fatalf("PutItems: %v", err)
	}

	cur := NewCursor(c, false, nil)
	if err := cur.SetExact("present"); err != nil {
		t.Fatalf("SetExact: %v", err)
	}
	count := 0
	for cur.Next() {
		count++
		if cur.Result().Value.(string) != "value" {
			t.Fatalf("unexpected value: %v", cur.Result().Value)
		}
	}
	cur.Close()
	if count != 1 {
		t.Fatalf("expected exactly 1 result for a present key, got %d", count)
	}

	missCur := NewCursor(c, false, nil)
	if err := missCur.SetExact("absent"); err != nil {
		t.Fatalf("SetExact: %v", err)
	}
	missCount := 0
	for missCur.Next() {
		missCount++
	}
	missCur.Close()
	if missCount != 0 {
		t.Fatalf("expected 0 results for an absent key, got %d", missCount)
	}
}

// Lo/Hi bound inclusivity on a plain (non-index) collection scan.
func TestCursorLoHiInclusivity(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("nums2", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	keys := []any{10, 20, 30, 40, 50}
	for _, k := range keys {
		if err := c.Put(NewRecord(k), PutOptions{Key: k}); err != nil {
			t.Fatalf("Put %v: %v", k, err)
		}
	}

	inclusive, err := c.Items(ScanOptions{Lo: 20, Hi: 40, IncludeLo: true, IncludeHi: true})
	if err != nil {
		t.Fatalf("inclusive Items: %v", err)
	}
	if len(inclusive) != 3 {
		t.Fatalf("expected 3 records in [20,40], got %d: %v", len(inclusive), inclusive)
	}

	exclusive, err := c.Items(ScanOptions{Lo: 20, Hi: 40, IncludeLo: false, IncludeHi: false})
	if err != nil {
		t.Fatalf("exclusive Items: %v", err)
	}
	if len(exclusive) != 1 || exclusive[0].Value != uint64(30) {
		t.Fatalf("expected exactly {30} in (20,40), got %v", exclusive)
	}
}
