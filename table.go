package splitkv

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Table is the split table's Registry plus its Lifecycle & Concurrency
// Controller (§4.4, §4.9). It presents a single logical, ordered,
// primary-key-indexed table backed by many on-disk partition files.
type Table struct {
	cfg Config

	// closeMu makes Close mutually exclusive with every other operation:
	// all operations hold it for read for their duration; Close takes it
	// exclusively (§5).
	closeMu sync.RWMutex
	closed  bool

	// regMu is the single registry monitor guarding partitions/active
	// mutation and the put/replace double-check sequence (§5).
	regMu      sync.Mutex
	partitions map[string]PartitionStore
	active     string // "" means no active partition yet

	execLimit    int
	deleteOnExit bool
}

// Open discovers, migrates and warms up every partition under cfg.Dir
// matching cfg.Prefix, then returns a ready-to-use Table (§4.4/§4.5).
func Open(cfg Config) (*Table, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Dir, 0o770); err != nil {
		return nil, wrapIOError("mkdir", cfg.Dir, err)
	}

	if err := migrateLegacy(cfg.Dir, cfg.Prefix, cfg.Now, cfg.Log); err != nil {
		return nil, err
	}

	found, err := scanDir(cfg.Dir, cfg.Prefix, cfg.RowDef, cfg.StaticRAMNeed, cfg.Log)
	if err != nil {
		return nil, err
	}

	// Descending predicted-RAM order: the largest partition opens first
	// (§4.4), since it is the most likely to be touched during warm-up.
	sort.Slice(found, func(i, j int) bool {
		return found[i].predictedRAM > found[j].predictedRAM
	})

	t := &Table{
		cfg:        cfg,
		partitions: make(map[string]PartitionStore, len(found)),
		execLimit:  executorSize(len(found)),
	}

	if err := t.openAndWarmUp(found); err != nil {
		return nil, err
	}

	t.assertActiveInvariant()

	return t, nil
}

func (t *Table) assertActiveInvariant() {
	if len(t.partitions) == 0 {
		return
	}

	if _, ok := t.partitions[t.active]; !ok {
		panic("splitkv: active partition invariant violated")
	}
}

// openPartition opens path using the two-phase fallback mandated by
// §4.5/§4.6: first with cfg.UseTailCache, retrying once with the tail
// cache disabled and the low-memory flag asserted if the store signals
// ErrCapacityExceeded.
func (t *Table) openPartition(path string, createNew bool) (PartitionStore, error) {
	opts := PartitionOpenOptions{
		BufferSize:       t.cfg.BufferSize,
		InitialCapacity:  t.cfg.InitialCapacity,
		UseTailCache:     t.cfg.UseTailCache,
		ExceedLargeLimit: t.cfg.ExceedLargeLimit,
		CreateNew:        createNew,
	}

	store, err := t.cfg.Open(path, t.cfg.RowDef, opts)
	if err == nil {
		return store, nil
	}

	if !errors.Is(err, ErrCapacityExceeded) {
		return nil, err
	}

	t.cfg.Log.Warn("partition store capacity exceeded, retrying with tail cache disabled",
		"path", path)

	opts.UseTailCache = false
	opts.LowMemory = true

	return t.cfg.Open(path, t.cfg.RowDef, opts)
}

// Close is idempotent. It shuts down the executor (implicit: no
// in-flight errgroups survive across a call boundary), closes every
// partition in arbitrary order, and drops the registry (§4.9).
func (t *Table) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	var merr *multierror.Error

	for name, p := range t.partitions {
		if t.deleteOnExit {
			p.DeleteOnExit()
		}

		if err := p.Close(); err != nil {
			merr = multierror.Append(merr, wrapIOError("close partition", name, err))
		}
	}

	t.partitions = nil
	t.active = ""

	return merr.ErrorOrNil()
}

// Clear closes the split table then physically deletes every entry under
// cfg.Dir whose name begins with cfg.Prefix, and re-opens it (§4.9). If
// the re-open fails with ErrCapacityExceeded, tail caching is disabled
// for the table's lifetime and the re-open is retried once.
func (t *Table) Clear() error {
	if err := t.Close(); err != nil {
		return err
	}

	if err := removePrefixed(t.cfg.Dir, t.cfg.Prefix); err != nil {
		return err
	}

	fresh, err := Open(t.cfg)
	if err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			retryCfg := t.cfg
			retryCfg.UseTailCache = false

			fresh, err = Open(retryCfg)
			if err != nil {
				return wrapIOError("reopen after clear", t.cfg.Dir, err)
			}
		} else {
			return err
		}
	}

	// fresh is a brand new, unshared Table: adopt its fields individually
	// rather than copying the whole struct, since Table embeds
	// sync.RWMutex/sync.Mutex values that must never be copied.
	t.closeMu.Lock()
	defer t.closeMu.Unlock()

	t.cfg = fresh.cfg
	t.closed = fresh.closed
	t.partitions = fresh.partitions
	t.active = fresh.active
	t.execLimit = fresh.execLimit
	t.deleteOnExit = fresh.deleteOnExit

	return nil
}

func removePrefixed(dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return wrapIOError("read dir", dir, err)
	}

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return wrapIOError("remove", entry.Name(), err)
		}
	}

	return nil
}

// DeleteOnExit marks every partition (current and future) for deletion at
// process exit (§4.9). It is best-effort: the underlying mark is applied
// to every PartitionStore now open, and to any opened subsequently by
// this Table until Close.
func (t *Table) DeleteOnExit() {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()

	if t.closed {
		return
	}

	t.regMu.Lock()
	t.deleteOnExit = true

	for _, p := range t.partitions {
		p.DeleteOnExit()
	}

	t.regMu.Unlock()
}

// withReadLock runs fn while holding closeMu for read, returning
// ErrClosed instead of calling fn if the table is already closed.
func (t *Table) withReadLock(fn func() error) error {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()

	if t.closed {
		return ErrClosed
	}

	return fn()
}

// snapshotPartitions returns the partition stores as of now, per the
// "reads may observe a snapshot taken at the start of the read" guarantee
// of §5. Caller must hold closeMu (for read or write), and must NOT
// already hold regMu.
func (t *Table) snapshotPartitions() map[string]PartitionStore {
	t.regMu.Lock()
	defer t.regMu.Unlock()

	return t.snapshotPartitionsLocked()
}

// snapshotPartitionsLocked is snapshotPartitions for callers that already
// hold regMu (the put/replace double-check sequence of §4.7/§9).
func (t *Table) snapshotPartitionsLocked() map[string]PartitionStore {
	snap := make(map[string]PartitionStore, len(t.partitions))
	for k, v := range t.partitions {
		snap[k] = v
	}

	return snap
}

// snapshotState is snapshotPartitions plus the active filename, taken
// together under one regMu acquisition so a reporting caller (e.g.
// Stats) sees a consistent pairing of the two.
func (t *Table) snapshotState() (map[string]PartitionStore, string) {
	t.regMu.Lock()
	defer t.regMu.Unlock()

	return t.snapshotPartitionsLocked(), t.active
}
