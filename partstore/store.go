// Package partstore is a concrete Partition Store (see splitkv's C1)
// backed by a single go.etcd.io/bbolt file per partition. It is the one
// implementation splitkv.PartitionOpener is expected to wrap in normal
// use, grounded on the way wtsi-hgi/wrstat-ui's bolt package opens and
// drives its per-dataset bbolt files.
package partstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"github.com/wtsi-hgi/splitkv"
)

const (
	filePerms     = 0o640
	defaultBucket = "rows"
)

// Store is a splitkv.PartitionStore backed by one bbolt file. Rows are
// stored keyed by their primary key, with the full serialized row (key
// prefix included) as the value: this keeps Get/Rows/Top able to hand
// back a ready-to-use splitkv.Row without re-assembling it from parts.
type Store struct {
	db   *bolt.DB
	path string
	def  splitkv.RowDef

	pendingBytes int64 // approximates WriteBufferSize; starts at 0 on Open
	deleteOnExit atomic.Bool
}

// Open implements splitkv.PartitionOpener. opts.UseTailCache maps to
// bbolt's sync tuning: with it off, NoFreelistSync and NoGrowSync are set;
// when bbolt's mmap fails because the platform can't grow the mapping
// (observed as an "out of memory"/"cannot allocate" error), Open returns
// splitkv.ErrCapacityExceeded so the caller's two-phase fallback kicks
// in, per splitkv's §4.5 contract.
func Open(path string, def splitkv.RowDef, opts splitkv.PartitionOpenOptions) (splitkv.PartitionStore, error) {
	if opts.CreateNew {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("partition already exists: %s", path)
		}
	}

	boltOpts := &bolt.Options{
		NoFreelistSync: !opts.UseTailCache,
		NoGrowSync:     !opts.UseTailCache,
		FreelistType:   bolt.FreelistMapType,
	}

	if opts.LowMemory {
		boltOpts.Mlock = false
		boltOpts.InitialMmapSize = 0
	} else if opts.InitialCapacity > 0 {
		boltOpts.InitialMmapSize = opts.InitialCapacity
	}

	db, err := bolt.Open(path, filePerms, boltOpts)
	if err != nil {
		if looksLikeCapacityExceeded(err) {
			return nil, splitkv.ErrCapacityExceeded
		}

		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, cerr := tx.CreateBucketIfNotExists([]byte(defaultBucket))
		return cerr
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, def: def}, nil
}

func looksLikeCapacityExceeded(err error) bool {
	msg := err.Error()

	return strings.Contains(msg, "cannot allocate memory") ||
		strings.Contains(msg, "out of memory") ||
		strings.Contains(msg, "mmap")
}

// StaticRAMNeed implements splitkv.StaticRAMNeedFunc: it is a pure
// function of the on-disk file size, without opening it, used by
// splitkv's Directory Scanner to order the warm-up queue (§4.3).
func StaticRAMNeed(path string, _ splitkv.RowDef) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

func (s *Store) view(fn func(b *bolt.Bucket) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket([]byte(defaultBucket)))
	})
}

func (s *Store) update(fn func(b *bolt.Bucket) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket([]byte(defaultBucket)))
	})
}

func (s *Store) Has(key []byte) (bool, error) {
	var found bool

	err := s.view(func(b *bolt.Bucket) error {
		found = b.Get(key) != nil
		return nil
	})

	return found, err
}

// Get returns a copy of the stored row: bbolt values are only valid for
// the lifetime of the transaction that produced them, so the copy is
// made regardless of forceCopy.
func (s *Store) Get(key []byte, _ bool) (splitkv.Row, bool, error) {
	var (
		row splitkv.Row
		ok  bool
	)

	err := s.view(func(b *bolt.Bucket) error {
		v := b.Get(key)
		if v == nil {
			return nil
		}

		ok = true
		row = append(splitkv.Row(nil), v...)

		return nil
	})

	return row, ok, err
}

func (s *Store) Put(row splitkv.Row) (inserted bool, err error) {
	key := row.Key(s.def)

	err = s.update(func(b *bolt.Bucket) error {
		inserted = b.Get(key) == nil

		return b.Put(key, row)
	})

	if err == nil {
		atomic.AddInt64(&s.pendingBytes, int64(len(row)))
	}

	return inserted, err
}

func (s *Store) Replace(row splitkv.Row) (previous splitkv.Row, hadPrevious bool, err error) {
	key := row.Key(s.def)

	err = s.update(func(b *bolt.Bucket) error {
		if old := b.Get(key); old != nil {
			previous = append(splitkv.Row(nil), old...)
			hadPrevious = true
		}

		return b.Put(key, row)
	})

	if err == nil {
		atomic.AddInt64(&s.pendingBytes, int64(len(row)))
	}

	return previous, hadPrevious, err
}

func (s *Store) AddUnique(row splitkv.Row) error {
	key := row.Key(s.def)

	err := s.update(func(b *bolt.Bucket) error {
		return b.Put(key, row)
	})

	if err == nil {
		atomic.AddInt64(&s.pendingBytes, int64(len(row)))
	}

	return err
}

func (s *Store) Delete(key []byte) (bool, error) {
	var existed bool

	err := s.update(func(b *bolt.Bucket) error {
		existed = b.Get(key) != nil
		if !existed {
			return nil
		}

		return b.Delete(key)
	})

	return existed, err
}

func (s *Store) Remove(key []byte) (row splitkv.Row, removed bool, err error) {
	err = s.update(func(b *bolt.Bucket) error {
		v := b.Get(key)
		if v == nil {
			return nil
		}

		row = append(splitkv.Row(nil), v...)
		removed = true

		return b.Delete(key)
	})

	return row, removed, err
}

func (s *Store) RemoveOne() (row splitkv.Row, removed bool, err error) {
	err = s.update(func(b *bolt.Bucket) error {
		c := b.Cursor()

		k, v := c.First()
		if k == nil {
			return nil
		}

		row = append(splitkv.Row(nil), v...)
		removed = true

		return b.Delete(k)
	})

	return row, removed, err
}

// Top returns the n rows with the largest keys in this partition
// (descending cursor order), per splitkv's §4.7/§9 note that Top only
// ever samples one (the largest) partition.
func (s *Store) Top(n int) ([]splitkv.Row, error) {
	if n <= 0 {
		return nil, nil
	}

	var rows []splitkv.Row

	err := s.view(func(b *bolt.Bucket) error {
		c := b.Cursor()

		for k, v := c.Last(); k != nil && len(rows) < n; k, v = c.Prev() {
			rows = append(rows, append(splitkv.Row(nil), v...))
		}

		return nil
	})

	return rows, err
}

// RemoveDoubles is a no-op: a bbolt bucket's keys are structurally
// unique, so a single partition can never hold two rows under the same
// key (§4.7's "doubles detection is per-partition only" has nothing to
// detect at this layer).
func (s *Store) RemoveDoubles() ([]splitkv.RowCollection, error) {
	return nil, nil
}

func (s *Store) Size() (int, error) {
	var n int

	err := s.view(func(b *bolt.Bucket) error {
		n = b.Stats().KeyN
		return nil
	})

	return n, err
}

func (s *Store) IsEmpty() (bool, error) {
	n, err := s.Size()
	return n == 0, err
}

// Mem reports bbolt's own estimate of the in-memory-resident B-tree
// pages (branch + leaf bytes in use).
func (s *Store) Mem() (int64, error) {
	var mem int64

	err := s.view(func(b *bolt.Bucket) error {
		st := b.Stats()
		mem = int64(st.BranchInuse + st.LeafInuse)

		return nil
	})

	return mem, err
}

// WriteBufferSize approximates the bytes written since the partition was
// opened: bbolt itself has no user-visible write buffer, since every
// Update is an individually committed transaction, so this is a proxy
// counter rather than a literal buffer size (§6.2 allows "may be 0").
func (s *Store) WriteBufferSize() (int64, error) {
	return atomic.LoadInt64(&s.pendingBytes), nil
}

func (s *Store) SmallestKey() ([]byte, bool, error) {
	var (
		key []byte
		ok  bool
	)

	err := s.view(func(b *bolt.Bucket) error {
		k, _ := b.Cursor().First()
		if k != nil {
			key, ok = append([]byte(nil), k...), true
		}

		return nil
	})

	return key, ok, err
}

func (s *Store) LargestKey() ([]byte, bool, error) {
	var (
		key []byte
		ok  bool
	)

	err := s.view(func(b *bolt.Bucket) error {
		k, _ := b.Cursor().Last()
		if k != nil {
			key, ok = append([]byte(nil), k...), true
		}

		return nil
	})

	return key, ok, err
}

// WarmUp walks every key in the bucket once, pulling its pages into
// bbolt's mmap'd region (and the OS page cache behind it) so subsequent
// lookups are served from memory, per splitkv's §4.5 warm-up contract.
func (s *Store) WarmUp() error {
	return s.view(func(b *bolt.Bucket) error {
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
		}

		return nil
	})
}

func (s *Store) DeleteOnExit() {
	s.deleteOnExit.Store(true)
}

func (s *Store) Filename() string {
	return filepath.Base(s.path)
}

func (s *Store) Close() error {
	err := s.db.Close()

	if s.deleteOnExit.Load() {
		if rerr := os.Remove(s.path); rerr != nil && err == nil {
			err = rerr
		}
	}

	return err
}
