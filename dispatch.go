package splitkv

import (
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/exp/slices"
)

// keeperResult names the partition (if any) holding a key.
type keeperResult struct {
	name  string
	store PartitionStore
	found bool
}

// keeperOf iterates snap and returns the first partition whose Has(key)
// is true (§4.7). Invariant (1) guarantees at most one such partition
// exists; probes are parallelised across the executor. snap must be a
// snapshot already taken under, or consistent with, §5's read-snapshot
// guarantee: callers holding regMu pass snapshotPartitionsLocked()'s
// result; callers that don't pass snapshotPartitions()'s.
func (t *Table) keeperOf(snap map[string]PartitionStore, key []byte) (keeperResult, error) {
	var (
		mu     sync.Mutex
		result keeperResult
	)

	g := new(errgroup.Group)
	g.SetLimit(t.execLimit)

	for name, p := range snap {
		name, p := name, p

		g.Go(func() error {
			ok, err := p.Has(key)
			if err != nil {
				return err
			}

			if ok {
				mu.Lock()
				if !result.found {
					result = keeperResult{name: name, store: p, found: true}
				}
				mu.Unlock()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return keeperResult{}, err
	}

	return result, nil
}

// Has reports whether key exists in any partition (§4.7).
func (t *Table) Has(key []byte) (found bool, err error) {
	err = t.withReadLock(func() error {
		k, kerr := t.keeperOf(t.snapshotPartitions(), key)
		found = k.found
		return kerr
	})

	return found, err
}

// Get returns the row stored under key by delegating to its keeper, if
// any (§4.7).
func (t *Table) Get(key []byte, forceCopy bool) (row Row, ok bool, err error) {
	err = t.withReadLock(func() error {
		k, kerr := t.keeperOf(t.snapshotPartitions(), key)
		if kerr != nil {
			return kerr
		}

		if !k.found {
			return nil
		}

		row, ok, err = k.store.Get(key, forceCopy)

		return err
	})

	return row, ok, err
}

// GetBatch is the batch variant of Get (§4.7): it returns the rows found
// for keys, ordered by the row-def's key order, omitting any key with no
// keeper.
func (t *Table) GetBatch(keys [][]byte) ([]Row, error) {
	type found struct {
		row Row
		ok  bool
	}

	results := make([]found, len(keys))

	g := new(errgroup.Group)
	g.SetLimit(t.execLimit)

	err := t.withReadLock(func() error {
		snap := t.snapshotPartitions()

		for i, key := range keys {
			i, key := i, key

			g.Go(func() error {
				row, ok, err := t.dispatchGetNoLock(snap, key)
				if err != nil {
					return err
				}

				results[i] = found{row: row, ok: ok}

				return nil
			})
		}

		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(keys))
	for _, f := range results {
		if f.ok {
			rows = append(rows, f.row)
		}
	}

	def := t.cfg.RowDef
	slices.SortFunc(rows, func(a, b Row) int { return def.CompareKeys(a.Key(def), b.Key(def)) })

	return rows, nil
}

func (t *Table) dispatchGetNoLock(snap map[string]PartitionStore, key []byte) (Row, bool, error) {
	k, err := t.keeperOf(snap, key)
	if err != nil || !k.found {
		return nil, false, err
	}

	return k.store.Get(key, false)
}

// Put inserts row under its key if absent, or delegates to its existing
// keeper for an in-place update (§4.7).
func (t *Table) Put(row Row) (inserted bool, err error) {
	key := row.Key(t.cfg.RowDef)

	err = t.withReadLock(func() error {
		t.regMu.Lock()
		defer t.regMu.Unlock()

		k, kerr := t.keeperOf(t.snapshotPartitionsLocked(), key)
		if kerr != nil {
			return kerr
		}

		if k.found {
			inserted, err = k.store.Put(row)
			return err
		}

		target, werr := t.writeTarget()
		if werr != nil {
			return werr
		}

		inserted, err = target.Put(row)

		return err
	})

	return inserted, err
}

// Replace inserts or overwrites row, returning the previous row if one
// existed anywhere in the table (§4.7).
func (t *Table) Replace(row Row) (previous Row, hadPrevious bool, err error) {
	key := row.Key(t.cfg.RowDef)

	err = t.withReadLock(func() error {
		t.regMu.Lock()
		defer t.regMu.Unlock()

		k, kerr := t.keeperOf(t.snapshotPartitionsLocked(), key)
		if kerr != nil {
			return kerr
		}

		if k.found {
			previous, hadPrevious, err = k.store.Replace(row)
			return err
		}

		target, werr := t.writeTarget()
		if werr != nil {
			return werr
		}

		_, err = target.Put(row)

		return err
	})

	return previous, hadPrevious, err
}

// AddUnique inserts row into the write target under the caller's
// guarantee that its key is absent from the whole table (§4.7). No
// cross-partition existence probe is performed.
func (t *Table) AddUnique(row Row) error {
	return t.withReadLock(func() error {
		t.regMu.Lock()
		defer t.regMu.Unlock()

		target, err := t.writeTarget()
		if err != nil {
			return err
		}

		return target.AddUnique(row)
	})
}

// Delete removes key from its keeper, if any (§4.7).
func (t *Table) Delete(key []byte) (deleted bool, err error) {
	err = t.withReadLock(func() error {
		k, kerr := t.keeperOf(t.snapshotPartitions(), key)
		if kerr != nil {
			return kerr
		}

		if !k.found {
			return nil
		}

		deleted, err = k.store.Delete(key)

		return err
	})

	return deleted, err
}

// Remove deletes key from its keeper and returns the row that was stored
// under it, if any (§4.7).
func (t *Table) Remove(key []byte) (row Row, removed bool, err error) {
	err = t.withReadLock(func() error {
		k, kerr := t.keeperOf(t.snapshotPartitions(), key)
		if kerr != nil {
			return kerr
		}

		if !k.found {
			return nil
		}

		row, removed, err = k.store.Remove(key)

		return err
	})

	return row, removed, err
}

// largestPartition returns the name and store of the partition reporting
// the largest Size() among snap, ties broken by (unspecified) iteration
// order (§4.7).
func (t *Table) largestPartition(snap map[string]PartitionStore) (name string, store PartitionStore, found bool, err error) {
	var best int

	for n, p := range snap {
		sz, perr := p.Size()
		if perr != nil {
			return "", nil, false, perr
		}

		if !found || sz > best {
			name, store, found, best = n, p, true, sz
		}
	}

	return name, store, found, nil
}

// RemoveOne removes and returns an arbitrary row, delegating to the
// partition with the largest size (§4.7).
func (t *Table) RemoveOne() (row Row, removed bool, err error) {
	err = t.withReadLock(func() error {
		_, store, found, lerr := t.largestPartition(t.snapshotPartitions())
		if lerr != nil {
			return lerr
		}

		if !found {
			return nil
		}

		row, removed, err = store.RemoveOne()

		return err
	})

	return row, removed, err
}

// Top returns the n rows reported by the partition with the largest
// size. This is preserved as-is from the source design: it is an
// approximate "most heavily used partition" sample, not a true global
// top-n (§9, open question).
func (t *Table) Top(n int) (top []Row, err error) {
	err = t.withReadLock(func() error {
		_, store, found, lerr := t.largestPartition(t.snapshotPartitions())
		if lerr != nil {
			return lerr
		}

		if !found {
			return nil
		}

		top, err = store.Top(n)

		return err
	})

	return top, err
}

// RemoveDoubles invokes RemoveDoubles on every partition and concatenates
// the results (§4.7). Cross-partition doubles cannot occur by invariant
// (1), so detection is per-partition only.
func (t *Table) RemoveDoubles() (doubles []RowCollection, err error) {
	err = t.withReadLock(func() error {
		for _, p := range t.snapshotPartitions() {
			d, perr := p.RemoveDoubles()
			if perr != nil {
				return perr
			}

			doubles = append(doubles, d...)
		}

		return nil
	})

	return doubles, err
}

// Size returns the total row count across every partition (§4.7).
func (t *Table) Size() (total int, err error) {
	err = t.withReadLock(func() error {
		for _, p := range t.snapshotPartitions() {
			n, perr := p.Size()
			if perr != nil {
				return perr
			}

			total += n
		}

		return nil
	})

	return total, err
}

// IsEmpty reports whether the table holds no rows at all (§4.7).
func (t *Table) IsEmpty() (empty bool, err error) {
	total, err := t.Size()
	return total == 0, err
}

// Mem returns the total estimated in-memory footprint across every
// partition (§4.7).
func (t *Table) Mem() (total int64, err error) {
	err = t.withReadLock(func() error {
		for _, p := range t.snapshotPartitions() {
			m, perr := p.Mem()
			if perr != nil {
				return perr
			}

			total += m
		}

		return nil
	})

	return total, err
}

// WriteBufferSize returns the sum of every partition's pending
// write-buffer size (§4.7).
func (t *Table) WriteBufferSize() (total int64, err error) {
	err = t.withReadLock(func() error {
		for _, p := range t.snapshotPartitions() {
			s, perr := p.WriteBufferSize()
			if perr != nil {
				return perr
			}

			total += s
		}

		return nil
	})

	return total, err
}

// SmallestKey returns the row-def-least key across every partition
// (§4.7). Partitions that fail to report are logged and skipped.
func (t *Table) SmallestKey() (key []byte, ok bool, err error) {
	err = t.withReadLock(func() error {
		key, ok = t.extremeKey(true)
		return nil
	})

	return key, ok, err
}

// LargestKey returns the row-def-greatest key across every partition
// (§4.7). Partitions that fail to report are logged and skipped.
func (t *Table) LargestKey() (key []byte, ok bool, err error) {
	err = t.withReadLock(func() error {
		key, ok = t.extremeKey(false)
		return nil
	})

	return key, ok, err
}

// extremeKey collects every partition's smallest/largest key into a
// sorted slice and returns the overall extremum (§4.7, §9 "bounded
// sorted-key structure"). A partition that errors is logged and skipped
// rather than aborting the whole call.
func (t *Table) extremeKey(smallest bool) ([]byte, bool) {
	snap := t.snapshotPartitions()
	keys := make([][]byte, 0, len(snap))

	for name, p := range snap {
		var (
			k  []byte
			ok bool
			e  error
		)

		if smallest {
			k, ok, e = p.SmallestKey()
		} else {
			k, ok, e = p.LargestKey()
		}

		if e != nil {
			t.cfg.Log.Warn("partition failed to report extremum key", "partition", name, "err", e)
			continue
		}

		if ok {
			keys = append(keys, k)
		}
	}

	if len(keys) == 0 {
		return nil, false
	}

	cmp := t.cfg.RowDef.CompareKeys
	slices.SortFunc(keys, func(a, b []byte) int { return cmp(a, b) })

	if smallest {
		return keys[0], true
	}

	return keys[len(keys)-1], true
}
