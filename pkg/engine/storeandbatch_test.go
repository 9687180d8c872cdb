package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func allEngines(t *testing.T) map[string]Engine {
	dir := t.TempDir()
	bolt, err := NewBoltStore(filepath.Join(dir, "bolt", "db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	ldb, err := NewLevelDBStore(filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	bdg, err := NewBadgerStore(filepath.Join(dir, "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { bdg.Close() })

	return map[string]Engine{
		"memory":  NewMemoryStore(),
		"boltdb":  bolt,
		"leveldb": ldb,
		"badgerdb": bdg,
	}
}

func drain(it Iterator) [][2]string {
	var out [][2]string
	for it.Next() {
		out = append(out, [2]string{string(it.Key()), string(it.Value())})
	}
	it.Close()
	return out
}

func TestAllEnginesPutGetDelete(t *testing.T) {
	for name, eng := range allEngines(t) {
		eng := eng
		t.Run(name, func(t *testing.T) {
			require.NoError(t, eng.Put([]byte("a"), []byte("1")))
			v, err := eng.Get([]byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), v)

			require.NoError(t, eng.Delete([]byte("a")))
			_, err = eng.Get([]byte("a"))
			require.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestAllEnginesIterateOrder(t *testing.T) {
	for name, eng := range allEngines(t) {
		eng := eng
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"a", "b", "c", "d"} {
				require.NoError(t, eng.Put([]byte(k), []byte(k+k)))
			}
			fwd := drain(eng.Iterate(nil, false))
			require.Equal(t, [][2]string{{"a", "aa"}, {"b", "bb"}, {"c", "cc"}, {"d", "dd"}}, fwd)

			rev := drain(eng.Iterate(nil, true))
			require.Equal(t, [][2]string{{"d", "dd"}, {"c", "cc"}, {"b", "bb"}, {"a", "aa"}}, rev)

			fromB := drain(eng.Iterate([]byte("b"), false))
			require.Equal(t, [][2]string{{"b", "bb"}, {"c", "cc"}, {"d", "dd"}}, fromB)

			revFromC := drain(eng.Iterate([]byte("c"), true))
			require.Equal(t, [][2]string{{"c", "cc"}, {"b", "bb"}, {"a", "aa"}}, revFromC)
		})
	}
}

func TestMemCachedStorePersistSync(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Put([]byte("a"), []byte("1")))

	up := NewMemCachedStore(base)
	require.NoError(t, up.Put([]byte("b"), []byte("2")))
	require.NoError(t, up.Delete([]byte("a")))

	v, err := up.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
	_, err = up.Get([]byte("a"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Base is untouched until PersistSync.
	_, err = base.Get([]byte("a"))
	require.NoError(t, err)

	n, err := up.PersistSync()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = base.Get([]byte("a"))
	require.ErrorIs(t, err, ErrKeyNotFound)
	v, err = base.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
}

func TestMemCachedStoreIterateMerge(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Put([]byte("a"), []byte("1")))
	require.NoError(t, base.Put([]byte("c"), []byte("3")))

	up := NewMemCachedStore(base)
	require.NoError(t, up.Put([]byte("b"), []byte("2")))
	require.NoError(t, up.Delete([]byte("c")))

	got := drain(up.Iterate(nil, false))
	require.Equal(t, [][2]string{{"a", "1"}, {"b", "2"}}, got)
}

func TestCachedStoreReadThrough(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Put([]byte("a"), []byte("1")))

	cs, err := NewCachedStore(base, 8)
	require.NoError(t, err)

	v, err := cs.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, base.Put([]byte("a"), []byte("stale-bypass")))
	v, err = cs.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v, "cached value should be served until invalidated")

	require.NoError(t, cs.Put([]byte("a"), []byte("2")))
	v, err = cs.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
}
