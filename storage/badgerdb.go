package storage

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
)

// ErrKeyNotFound is returned by Read when there is no entry for a key.
var ErrKeyNotFound = errors.New("key not found")

// BadgerDB implements KeyValue and represents a connection to BadgerDB.
type BadgerDB struct {
	connection *badger.DB
}

// NewBadgerDB initializes the BadgerDB embedded database. It is up to the
// caller to close the database with Close().
func NewBadgerDB(conf *KVConfig) (*BadgerDB, error) {
	var opts badger.Options
	if conf.StorageDirPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// See: https://dgraph.io/docs/badger/get-started/#opening-a-database
		opts = badger.DefaultOptions(conf.StorageDirPath)
	}
	// Badger logs to stderr by default, which is noisy in test output.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)

	if err != nil {
		return &BadgerDB{}, fmt.Errorf("can't open the db connection: %v", err)
	}

	return &BadgerDB{
		connection: db,
	}, nil
}

// Put upserts an entry
func (db *BadgerDB) Put(entry KVEntry) error {
	err := db.connection.Update(func(txn *badger.Txn) error {
		err := txn.Set(entry.Key, entry.Value)
		if err != nil {
			return fmt.Errorf("could not set the KV pair: %v", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %v", err)
	}
	return nil
}

// Read returns an entry by key, or ErrKeyNotFound.
func (db *BadgerDB) Read(key []byte) (KVEntry, error) {
	var val []byte
	// See: https://dgraph.io/docs/badger/get-started/#read-only-transactions
	err := db.connection.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)

		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}

		if err != nil {
			return fmt.Errorf("can't retrieve a value for the key provided: %v", err)
		}

		// We copy values rather than return them directly because item.Value()
		// is considered undefined behavior outside a transaction.
		// https://godoc.org/github.com/dgraph-io/badger#Item.Value
		val, err = item.ValueCopy(nil)

		if err != nil {
			return fmt.Errorf("can't copy the value from the database: %v", err)
		}
		return nil
	})
	if err != nil {
		return KVEntry{}, err
	}
	return KVEntry{
		Key:   key,
		Value: val,
	}, nil
}

// List returns every entry in the database in key order.
func (db *BadgerDB) List() ([]KVEntry, error) {
	var entries []KVEntry
	err := db.connection.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("can't copy the value from the database: %v", err)
			}
			entries = append(entries, KVEntry{
				Key:   item.KeyCopy(nil),
				Value: v,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteAll removes every entry from the database.
func (db *BadgerDB) DeleteAll() error {
	if err := db.connection.DropAll(); err != nil {
		return fmt.Errorf("can't drop the database contents: %v", err)
	}
	return nil
}

// Close tears down the database connection. You should defer this.
func (db *BadgerDB) Close() {
	err := db.connection.Close()
	if err != nil {
		panic(fmt.Sprintf("could not close the database: %v", err))
	}
}
