package partstore

import (
	bolt "go.etcd.io/bbolt"

	"github.com/wtsi-hgi/splitkv"
)

// cursorStream drives one splitkv.OrderedStream over a dedicated, long
// lived bbolt read transaction. Opening a transaction per stream (rather
// than per Next call) is what lets Clone hand back an independent cursor
// positioned at the same key without disturbing the original.
type cursorStream[T any] struct {
	tx        *bolt.Tx
	cur       *bolt.Cursor
	ascending bool
	decode    func(k, v []byte) T

	started   bool
	lastKey   []byte
	exhausted bool

	// inclusive is set while lastKey still holds the caller's startKey, so
	// the first Next may return startKey itself.
	inclusive bool
}

func newCursorStream[T any](db *bolt.DB, ascending bool, startKey []byte, decode func(k, v []byte) T) (*cursorStream[T], error) {
	tx, err := db.Begin(false)
	if err != nil {
		return nil, err
	}

	cur := tx.Bucket([]byte(defaultBucket)).Cursor()

	s := &cursorStream[T]{tx: tx, cur: cur, ascending: ascending, decode: decode}

	if startKey != nil {
		s.lastKey = append([]byte(nil), startKey...)
		s.started = true
		s.inclusive = true
	}

	return s, nil
}

func (s *cursorStream[T]) Next() (value T, ok bool, err error) {
	if s.exhausted {
		var zero T
		return zero, false, nil
	}

	var k, v []byte

	switch {
	case !s.started:
		s.started = true

		if s.ascending {
			k, v = s.cur.First()
		} else {
			k, v = s.cur.Last()
		}
	case s.lastKey == nil:
		// started with no prior position recorded (an empty, non-nil
		// startKey): seek from the beginning.
		if s.ascending {
			k, v = s.cur.First()
		} else {
			k, v = s.cur.Last()
		}
	default:
		k, v = s.cur.Seek(s.lastKey)
		atKey := k != nil && string(k) == string(s.lastKey)

		if s.ascending {
			if atKey && !s.inclusive {
				k, v = s.cur.Next()
			}
		} else if k == nil {
			// Seek ran off the end: lastKey is past every remaining key,
			// so the next-lower key is simply the last one in the bucket.
			k, v = s.cur.Last()
		} else if !(atKey && s.inclusive) {
			k, v = s.cur.Prev()
		}
	}

	s.inclusive = false

	if k == nil {
		s.exhausted = true

		var zero T
		return zero, false, nil
	}

	s.lastKey = append(s.lastKey[:0], k...)

	return s.decode(k, v), true, nil
}

// Clone opens an independent read transaction positioned at the same
// key the receiver last returned, per splitkv's clonable-stream contract
// (§4.8).
func (s *cursorStream[T]) Clone() splitkv.OrderedStream[T] {
	tx, err := s.tx.DB().Begin(false)
	if err != nil {
		return &errorStream[T]{err: err}
	}

	clone := &cursorStream[T]{
		tx:        tx,
		cur:       tx.Bucket([]byte(defaultBucket)).Cursor(),
		ascending: s.ascending,
		decode:    s.decode,
		started:   s.started,
		exhausted: s.exhausted,
		inclusive: s.inclusive,
	}

	if s.lastKey != nil {
		clone.lastKey = append([]byte(nil), s.lastKey...)
	}

	return clone
}

func (s *cursorStream[T]) Close() error {
	return s.tx.Rollback()
}

// errorStream surfaces a construction error through the OrderedStream
// contract instead of panicking inside Clone, which has no error return.
type errorStream[T any] struct{ err error }

func (e *errorStream[T]) Next() (value T, ok bool, err error) {
	var zero T
	return zero, false, e.err
}

func (e *errorStream[T]) Clone() splitkv.OrderedStream[T] { return e }
func (e *errorStream[T]) Close() error                    { return nil }

func decodeKey(k, _ []byte) []byte {
	return append([]byte(nil), k...)
}

func decodeRow(_, v []byte) splitkv.Row {
	return append(splitkv.Row(nil), v...)
}

func (s *Store) Keys(ascending bool, startKey []byte) (splitkv.OrderedStream[[]byte], error) {
	return newCursorStream(s.db, ascending, startKey, decodeKey)
}

func (s *Store) Rows(ascending bool, startKey []byte) (splitkv.OrderedStream[splitkv.Row], error) {
	return newCursorStream(s.db, ascending, startKey, decodeRow)
}
