package store

import (
	"go.uber.org/zap"

	"github.com/dw/acid/pkg/keycodec"
)

// RebuildIndex drops every entry under name and re-derives it from a full
// scan of the collection. The original source leaves index self-healing
// as a dangling remark ("self-healing is deferred to an offline
// rebuild"); this is that rebuild.
func (c *Collection) RebuildIndex(name string) error {
	idx, ok := c.Index(name)
	if !ok {
		return &InvalidConfigurationError{Msg: "unknown index " + name}
	}

	eng := c.store.eng
	prefix := c.store.physPrefix(idx.idx)
	var stale [][]byte
	it := eng.Iterate(prefix, false)
	for it.Next() {
		if _, ok := keycodec.UnpackPrefixed(prefix, it.Key()); !ok {
			break
		}
		stale = append(stale, append([]byte{}, it.Key()...))
	}
	it.Close()
	for _, k := range stale {
		if err := eng.Delete(k); err != nil {
			return err
		}
	}

	recs, err := c.Items(ScanOptions{})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		tuples, err := idx.fn(rec.Value)
		if err != nil {
			return err
		}
		for _, t := range tuples {
			if err := eng.Put(c.indexEntryKey(idx, t, rec.Key), nil); err != nil {
				return err
			}
		}
	}

	c.store.log.Info("rebuilt index",
		zap.String("collection", c.name),
		zap.String("index", name),
		zap.Int("records", len(recs)),
	)
	return nil
}
