package splitkv

import "io"

// OrderedStream is a clonable, ordered, lazy sequence of T. Clone must
// return an independent stream positioned at the same place as the
// receiver, so that two traversals can proceed concurrently without
// interfering with each other (see §4.8).
type OrderedStream[T any] interface {
	// Next advances the stream and returns the next element. ok is false
	// once the stream is exhausted.
	Next() (value T, ok bool, err error)

	// Clone returns an independent copy of the stream, positioned exactly
	// where the receiver currently is.
	Clone() OrderedStream[T]

	// Close releases any resources (e.g. an open read transaction) held by
	// the stream. It is safe to call more than once.
	Close() error
}

// RowCollection is a group of rows reported together, e.g. the duplicate
// sets returned by RemoveDoubles.
type RowCollection []Row

// PartitionStore is the external contract §6.2 describes: an ordered,
// primary-key-indexed on-disk table. It is implemented outside this
// package (see package partstore for a concrete, bbolt-backed
// implementation); splitkv only ever consumes it through this interface.
type PartitionStore interface {
	io.Closer

	Has(key []byte) (bool, error)
	Get(key []byte, forceCopy bool) (Row, bool, error)

	// Put inserts or updates row, returning true if it was newly inserted.
	Put(row Row) (inserted bool, err error)

	// Replace inserts or overwrites row, returning the previous row (if
	// any existed).
	Replace(row Row) (previous Row, hadPrevious bool, err error)

	// AddUnique inserts row under the caller's guarantee that its key is
	// not already present in any partition of the owning table.
	AddUnique(row Row) error

	Delete(key []byte) (bool, error)
	Remove(key []byte) (Row, bool, error)
	RemoveOne() (Row, bool, error)
	Top(n int) ([]Row, error)
	RemoveDoubles() ([]RowCollection, error)

	Size() (int, error)
	IsEmpty() (bool, error)
	Mem() (int64, error)
	WriteBufferSize() (int64, error)
	SmallestKey() ([]byte, bool, error)
	LargestKey() ([]byte, bool, error)

	Keys(ascending bool, startKey []byte) (OrderedStream[[]byte], error)
	Rows(ascending bool, startKey []byte) (OrderedStream[Row], error)

	WarmUp() error
	DeleteOnExit()
	Filename() string
}

// PartitionOpener opens (or creates) a PartitionStore at path. useTailCache
// and lowMemory mirror §4.5/§4.6's two-phase fallback: the first attempt is
// made with useTailCache as given; on ErrCapacityExceeded the caller
// retries once with useTailCache=false and lowMemory=true.
type PartitionOpener func(path string, def RowDef, opts PartitionOpenOptions) (PartitionStore, error)

// PartitionOpenOptions carries the construction hints §3 and §6.2
// describe (buffer size, initial capacity, tail cache, low-memory,
// create-new).
type PartitionOpenOptions struct {
	BufferSize       int
	InitialCapacity  int
	UseTailCache     bool
	ExceedLargeLimit bool
	LowMemory        bool
	CreateNew        bool
}

// StaticRAMNeedFunc is the pure, no-open RAM-footprint estimator §4.3
// requires of a PartitionStore implementation: a function of the file's
// on-disk size and the row schema.
type StaticRAMNeedFunc func(path string, def RowDef) (int64, error)
