package store

import "testing"

// S3: Batch folds consecutive single records into one physical entry,
// and every member stays individually retrievable by its original key.
func TestBatchPacksConsecutiveRecords(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("logs", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	recs, err := c.Puts([]any{"e0", "e1", "e2", "e3", "e4"}, PutOptions{})
	if err != nil {
		t.Fatalf("Puts: %v", err)
	}

	consumed, batches, lastKey, err := c.Batch(BatchOptions{MaxRecs: 3})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if consumed != 5 {
		t.Fatalf("expected 5 logical records consumed, got %d", consumed)
	}
	if batches != 2 {
		t.Fatalf("expected 2 physical batch writes (3+2), got %d", batches)
	}
	if lastKey.Compare(recs[4].Key) != 0 {
		t.Fatalf("expected lastKey to be the final record's key, got %v", lastKey)
	}

	for i, rec := range recs {
		got, err := c.Get(rec.Key, nil)
		if err != nil {
			t.Fatalf("Get member %d: %v", i, err)
		}
		if got.Value.(string) != rec.Value.(string) {
			t.Fatalf("member %d: expected %q, got %v", i, rec.Value, got.Value)
		}
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, st := range stats {
		if st.Name == "logs" && st.PhysicalCount != 2 {
			t.Fatalf("expected 2 physical records after batching, got %d", st.PhysicalCount)
		}
	}
}

// S4: writing to a batched member explodes the batch back into individual
// physical records for every sibling, without disturbing their keys or
// values, and without touching any index entries.
func TestPutExplodesBatchOnWrite(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("logs", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	idx, err := c.AddIndex("by_value", func(v any) (any, error) { return v, nil })
	if err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	recs, err := c.Puts([]any{"e0", "e1", "e2"}, PutOptions{})
	if err != nil {
		t.Fatalf("Puts: %v", err)
	}
	if _, batches, _, err := c.Batch(BatchOptions{MaxRecs: 10}); err != nil || batches != 1 {
		t.Fatalf("Batch: batches=%d err=%v", batches, err)
	}

	got, err := c.Get(recs[1].Key, nil)
	if err != nil {
		t.Fatalf("Get batched member: %v", err)
	}
	got.Value = "e1-updated"
	if err := c.Put(got, PutOptions{}); err != nil {
		t.Fatalf("Put to exploded member: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, st := range stats {
		if st.Name == "logs" && st.PhysicalCount != 3 {
			t.Fatalf("expected the batch to fully explode into 3 physical records, got %d", st.PhysicalCount)
		}
	}

	for i, want := range []string{"e0", "e1-updated", "e2"} {
		rec, err := c.Get(recs[i].Key, nil)
		if err != nil {
			t.Fatalf("Get sibling %d after explode: %v", i, err)
		}
		if rec.Value.(string) != want {
			t.Fatalf("sibling %d: expected %q, got %v", i, want, rec.Value)
		}
	}

	keys, err := idx.Keys(Filter{Args: mustTuplize(t, "e0")})
	if err != nil {
		t.Fatalf("index Keys: %v", err)
	}
	if len(keys) != 1 || keys[0].Compare(recs[0].Key) != 0 {
		t.Fatalf("expected the by_value index for e0 to be untouched by the explode, got %v", keys)
	}
}

// Batch with Preserve leaves an already-batched entry untouched, rather
// than re-folding it into a new grouping.
func TestBatchPreserveSkipsExistingBatches(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("logs", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if _, err := c.Puts([]any{"e0", "e1", "e2"}, PutOptions{}); err != nil {
		t.Fatalf("Puts: %v", err)
	}
	if _, batches, _, err := c.Batch(BatchOptions{MaxRecs: 10}); err != nil || batches != 1 {
		t.Fatalf("initial Batch: batches=%d err=%v", batches, err)
	}

	if _, err := c.Puts([]any{"e3", "e4"}, PutOptions{}); err != nil {
		t.Fatalf("Puts second round: %v", err)
	}

	consumed, batches, _, err := c.Batch(BatchOptions{MaxRecs: 10, Preserve: true})
	if err != nil {
		t.Fatalf("Batch with Preserve: %v", err)
	}
	if consumed != 5 {
		t.Fatalf("expected 5 logical records consumed (3 preserved + 2 fresh), got %d", consumed)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, st := range stats {
		if st.Name == "logs" {
			// 1 preserved batch of 3 + 1 new batch of 2 = 2 physical records.
			if st.PhysicalCount != 2 {
				t.Fatalf("expected 2 physical records (preserved batch + new batch), got %d", st.PhysicalCount)
			}
			if st.LogicalCount != 5 {
				t.Fatalf("expected 5 logical records, got %d", st.LogicalCount)
			}
		}
	}
	_ = batches
}

// MaxBytes forces a flush before a tentative group would exceed the cap,
// by popping the record that would have overflowed it into the next group.
func TestBatchMaxBytesSplitsLargeGroup(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("blobs", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	values := make([]any, 6)
	for i := range values {
		values[i] = "payload-of-some-length"
	}
	if _, err := c.Puts(values, PutOptions{}); err != nil {
		t.Fatalf("Puts: %v", err)
	}

	single, err := c.encodeSingle("payload-of-some-length")
	if err != nil {
		t.Fatalf("encodeSingle: %v", err)
	}
	maxBytes := len(single) * 3 // room for roughly 2-3 records per group

	_, batches, _, err := c.Batch(BatchOptions{MaxBytes: maxBytes})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if batches < 2 {
		t.Fatalf("expected MaxBytes to force multiple physical batches, got %d", batches)
	}
}
