package smtptest

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ptgott/mailassert/storage"
	"github.com/rs/zerolog/log"
)

// ErrMessageNotFound is returned by Store.Get for IDs the store doesn't hold.
var ErrMessageNotFound = errors.New("message not found")

// StoredMessage is a Captured message plus the ID the store assigned to it.
type StoredMessage struct {
	ID int `json:"id"`
	Captured
}

// Store keeps captured messages in a storage.KeyValue and hands out IDs the
// way MailCatcher does: starting at 1, increasing with every message and never
// reused, even after DeleteAll. Designed to be goroutine safe since the SMTP
// and HTTP servers hit it from their own goroutines. Create it with NewStore.
type Store struct {
	mu     *sync.Mutex
	db     storage.KeyValue
	lastID int
}

// NewStore returns a Store that persists messages to db. The caller still
// owns db and must close it. If db already holds messages, e.g., because it's
// on disk, IDs continue from the highest one.
func NewStore(db storage.KeyValue) *Store {
	s := &Store{
		mu: &sync.Mutex{},
		db: db,
	}

	l, err := s.List()
	if err != nil {
		log.Warn().Err(err).Msg("can't read existing messages, so IDs will start at 1")
		return s
	}
	if len(l) > 0 {
		s.lastID = l[len(l)-1].ID
	}

	return s
}

// Keys are big-endian so the KV store's key order is ID order.
func idKey(id int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

// Add stores c under a new ID and returns the ID.
func (s *Store) Add(c Captured) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	id := s.lastID + 1
	b, err := json.Marshal(StoredMessage{ID: id, Captured: c})
	if err != nil {
		return 0, fmt.Errorf("can't encode the message: %v", err)
	}

	if err := s.db.Put(storage.KVEntry{Key: idKey(id), Value: b}); err != nil {
		return 0, fmt.Errorf("can't save the message: %v", err)
	}
	s.lastID = id

	log.Debug().
		Int("id", id).
		Str("subject", c.Subject).
		Msg("captured a message")

	return id, nil
}

// Capture parses raw and stores the result.
func (s *Store) Capture(raw []byte) (int, error) {
	c, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	return s.Add(c)
}

// Get returns the message with the given ID or ErrMessageNotFound.
func (s *Store) Get(id int) (StoredMessage, error) {
	if id < 0 {
		return StoredMessage{}, ErrMessageNotFound
	}

	e, err := s.db.Read(idKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return StoredMessage{}, ErrMessageNotFound
	}
	if err != nil {
		return StoredMessage{}, err
	}

	var m StoredMessage
	if err := json.Unmarshal(e.Value, &m); err != nil {
		return StoredMessage{}, fmt.Errorf("can't decode message %v: %v", id, err)
	}
	return m, nil
}

// List returns every stored message in ID order.
func (s *Store) List() ([]StoredMessage, error) {
	entries, err := s.db.List()
	if err != nil {
		return nil, err
	}

	l := make([]StoredMessage, 0, len(entries))
	for _, e := range entries {
		var m StoredMessage
		if err := json.Unmarshal(e.Value, &m); err != nil {
			return nil, fmt.Errorf("can't decode a stored message: %v", err)
		}
		l = append(l, m)
	}
	return l, nil
}

// DeleteAll removes every message. IDs keep counting from where they were.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteAll(); err != nil {
		return err
	}
	log.Debug().Msg("deleted all messages")
	return nil
}
