package splitkv

import (
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// openAndWarmUp is the Warm-up Orchestrator (§4.5). Every discovered
// partition is opened (largest predicted RAM need first, as scanDir's
// caller already sorted found) and warmed up concurrently, bounded by
// t.execLimit. If found is empty, Open leaves the table with no
// partitions and no active partition: §3's "a partition is created on
// first write or on rollover" means an empty directory stays empty until
// the first Put/Replace/AddUnique (§4.7's writeTarget already creates one
// when active is unset).
func (t *Table) openAndWarmUp(found []discoveredPartition) error {
	if len(found) == 0 {
		return nil
	}

	opened := make([]PartitionStore, len(found))

	g := new(errgroup.Group)
	g.SetLimit(t.execLimit)

	for i, d := range found {
		i, d := i, d

		g.Go(func() error {
			path := filepath.Join(t.cfg.Dir, d.filename)

			store, err := t.openPartition(path, false)
			if err != nil {
				return wrapIOError("open partition", path, err)
			}

			// Warm-up is best-effort (§4.5): a failure here is logged, not
			// propagated, so that one slow or damaged partition can't fail
			// the whole open.
			if err := store.WarmUp(); err != nil {
				t.cfg.Log.Warn("partition warm-up failed", "path", path, "err", err)
			}

			opened[i] = store

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, s := range opened {
			if s != nil {
				_ = s.Close()
			}
		}

		return err
	}

	latest := found[0]

	for i, d := range found {
		t.partitions[d.filename] = opened[i]

		if d.createdAt.After(latest.createdAt) {
			latest = d
		}
	}

	t.active = latest.filename

	return nil
}
