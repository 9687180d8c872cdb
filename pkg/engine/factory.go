package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dw/acid/pkg/engine/dbconfig"
)

// Open resolves cfg.Type to a concrete Engine, optionally wrapping it in a
// bounded LRU CachedStore when cfg.CacheSize > 0. It is the single entry
// point pkg/store.Open uses to obtain an engine from configuration.
func Open(cfg dbconfig.DBConfiguration) (Engine, error) {
	var (
		eng Engine
		err error
	)
	switch cfg.Type {
	case dbconfig.InMemoryDB, "":
		eng = NewMemoryStore()
	case dbconfig.BoltDB:
		path := cfg.BoltDBOptions.FilePath
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		eng, err = NewBoltStore(path)
	case dbconfig.LevelDB:
		eng, err = NewLevelDBStore(cfg.LevelDBOptions.DataDirectoryPath)
	case dbconfig.BadgerDB:
		eng, err = NewBadgerStore(cfg.BadgerDBOptions.Dir)
	default:
		return nil, fmt.Errorf("engine: unknown backend type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedStore(eng, cfg.CacheSize)
	}
	return eng, nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0700)
}
