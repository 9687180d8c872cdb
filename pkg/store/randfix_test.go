package store

import (
	"sort"
	"testing"

	"github.com/dw/acid/internal/randfix"
	"github.com/dw/acid/pkg/keycodec"
)

// Random composite keys, put individually, must come back out of a full
// forward scan in exactly sorted order -- exercising Collection.Put/Items
// against whatever element-kind mix randfix happens to draw rather than
// the fixed-shape keys the other collection tests use.
func TestCollectionRandomCompositeKeysScanInOrder(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Collection("randomized", CollectionOptions{})
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	const n = 40
	seen := map[string]bool{}
	var keys []keycodec.Key
	for len(keys) < n {
		k := randfix.Key(randfix.Int(1, 3))
		if seen[k.String()] {
			continue
		}
		seen[k.String()] = true
		keys = append(keys, k)
		if err := c.Put(NewRecord(k.String()), PutOptions{Key: k}); err != nil {
			t.Fatalf("Put %v: %v", k, err)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

	recs, err := c.Items(ScanOptions{})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(recs) != n {
		t.Fatalf("expected %d records, got %d", n, len(recs))
	}
	for i, want := range keys {
		if recs[i].Key.Compare(want) != 0 {
			t.Fatalf("position %d: expected key %v, got %v", i, want, recs[i].Key)
		}
		if recs[i].Value.(string) != want.String() {
			t.Fatalf("position %d: expected value %q, got %v", i, want.String(), recs[i].Value)
		}
	}
}
