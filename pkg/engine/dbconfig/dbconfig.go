// Package dbconfig holds the configuration structs for every engine
// backend, unmarshalable from YAML with one struct per subsystem.
package dbconfig

// Engine type names accepted by engine.Open / DBConfiguration.Type.
const (
	InMemoryDB = "inmemory"
	BoltDB     = "boltdb"
	LevelDB    = "leveldb"
	BadgerDB   = "badgerdb"
)

// DBConfiguration selects and configures one engine backend.
type DBConfiguration struct {
	Type            string          `yaml:"type"`
	BoltDBOptions   BoltDBOptions   `yaml:"bolt_db_options,omitempty"`
	LevelDBOptions  LevelDBOptions  `yaml:"level_db_options,omitempty"`
	BadgerDBOptions BadgerDBOptions `yaml:"badger_db_options,omitempty"`
	// CacheSize, when > 0, wraps the resolved engine in a bounded
	// read-through LRU cache (see engine.NewCachedStore).
	CacheSize int `yaml:"cache_size,omitempty"`
}

// BoltDBOptions configures the go.etcd.io/bbolt backend.
type BoltDBOptions struct {
	FilePath string `yaml:"file_path"`
}

// LevelDBOptions configures the syndtr/goleveldb backend.
type LevelDBOptions struct {
	DataDirectoryPath string `yaml:"data_directory_path"`
}

// BadgerDBOptions configures the dgraph-io/badger backend.
type BadgerDBOptions struct {
	Dir string `yaml:"dir"`
}
