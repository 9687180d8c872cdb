package store

import "github.com/dw/acid/pkg/engine"

// ScanOptions bounds a Collection-level scan through its cursor.
type ScanOptions struct {
	Lo, Hi      any
	IncludeLo   bool
	IncludeHi   bool
	Prefix      any // mutually exclusive with Lo/Hi; see Cursor.SetPrefix
	Reverse     bool
	Max         int
	Txn         engine.Txn
}

func (c *Collection) cursorFor(opts ScanOptions) (*Cursor, error) {
	cur := NewCursor(c, opts.Reverse, opts.Txn)
	switch {
	case opts.Prefix != nil:
		if err := cur.SetPrefix(opts.Prefix); err != nil {
			return nil, err
		}
	default:
		if opts.Lo != nil {
			if err := cur.SetLo(opts.Lo, opts.IncludeLo); err != nil {
				return nil, err
			}
		}
		if opts.Hi != nil {
			if err := cur.SetHi(opts.Hi, opts.IncludeHi); err != nil {
				return nil, err
			}
		}
	}
	if opts.Max > 0 {
		cur.SetMax(opts.Max)
	}
	return cur, nil
}

// Items returns every record matching opts, most expensively but most
// simply: it materializes the whole result set rather than streaming it,
// which is fine for the scan sizes this store targets (callers wanting a
// streaming walk can drive a *Cursor directly via NewCursor).
func (c *Collection) Items(opts ScanOptions) ([]*Record, error) {
	cur, err := c.cursorFor(opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []*Record
	for cur.Next() {
		r := cur.Result()
		tuples, err := c.computeIndexTuples(r.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, &Record{Key: r.Key, Value: r.Value, loaded: true, isBatch: len(r.Keys) > 1, indexTuples: tuples})
	}
	return out, nil
}

// Keys returns every matching key.
func (c *Collection) Keys(opts ScanOptions) ([]any, error) {
	recs, err := c.Items(opts)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r.Key
	}
	return out, nil
}

// Find returns at most one record matching opts.
func (c *Collection) Find(opts ScanOptions) (*Record, error) {
	opts.Max = 1
	recs, err := c.Items(opts)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// Values returns every matching value.
func (c *Collection) Values(opts ScanOptions) ([]any, error) {
	recs, err := c.Items(opts)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r.Value
	}
	return out, nil
}
