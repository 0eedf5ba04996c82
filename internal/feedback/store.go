// Package feedback persists human ratings of findings and turns them into
// advisory threshold adjustments for future runs. The store is an
// append-only event log: entries are written once and never mutated.
package feedback

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/hindsightdev/hindsight/internal/errors"
)

// Rating is the human verdict on one finding.
type Rating string

const (
	RatingUseful Rating = "useful"
	RatingNoise  Rating = "noise"
	RatingSkip   Rating = "skip"
)

// Valid reports whether r is one of the three known ratings.
func (r Rating) Valid() bool {
	return r == RatingUseful || r == RatingNoise || r == RatingSkip
}

// Entry is one immutable feedback record.
type Entry struct {
	ID        string    `json:"id"`
	FindingID string    `json:"finding_id"`
	Pattern   string    `json:"pattern"`
	Rating    Rating    `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

var entriesBucket = []byte("entries")

// Store is the append-only feedback log. bbolt serializes writers, and
// readers see consistent snapshots, so entry writes are atomic: a reader
// never observes a partial record.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.KindFeedbackStore, "failed to create feedback directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindFeedbackStore, "failed to open feedback store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(entriesBucket)
		return berr
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.KindFeedbackStore, "failed to initialize feedback store")
	}
	return &Store{db: db}, nil
}

// Record appends one entry. The entry's ID and timestamp are assigned here
// when unset. Write failures surface to the caller and are never silently
// swallowed.
func (s *Store) Record(entry Entry) error {
	if entry.FindingID == "" {
		return errors.New(errors.KindFeedbackStore, "feedback entry requires a finding id")
	}
	if !entry.Rating.Valid() {
		return errors.Newf(errors.KindFeedbackStore, "unknown rating %q (useful, noise, skip)", entry.Rating)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		seq, serr := b.NextSequence()
		if serr != nil {
			return serr
		}
		data, merr := json.Marshal(entry)
		if merr != nil {
			return merr
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
	if err != nil {
		return errors.Wrap(err, errors.KindFeedbackStore, "failed to record feedback")
	}
	return nil
}

// Entries returns every entry in append order.
func (s *Store) Entries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(_, v []byte) error {
			var e Entry
			if uerr := json.Unmarshal(v, &e); uerr != nil {
				return uerr
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindFeedbackStore, "failed to read feedback entries")
	}
	return entries, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }
