package storage

// KVConfig contains settings specific to BadgerDB connections. An empty
// StorageDirPath keeps everything in memory, which is what tests want.
type KVConfig struct {
	StorageDirPath string `yaml:"storageDir" json:"storageDir"`
}

// KeyValue exposes a common interface for performing CRUD operations on an
// underlying storage layer.
//
// Implentations need to include connection logic in code to initialize
// a Store.
type KeyValue interface {
	// Replace the value of a key or create a new one if it doesn't exist
	Put(KVEntry) error
	// Return an entry given its key
	Read(key []byte) (KVEntry, error)
	// Return every entry, ordered by key
	List() ([]KVEntry, error)
	// Delete every entry
	DeleteAll() error
	// Drain/tear down the connection, or something analogous for
	// an embedded database
	Close()
}

// KVEntry is what we'll write to and read from the KV store
type KVEntry struct {
	Key   []byte
	Value []byte
}
