package splitkv

import (
	"sort"

	"github.com/hashicorp/go-multierror"
)

// PartitionStats describes one partition for reporting purposes (§4 of
// SPEC_FULL.md's cmd/splitkv info support).
type PartitionStats struct {
	Filename string
	Created  string
	Active   bool
	Rows     int
	Mem      int64
}

// Stats aggregates count, total row count, total memory and per-partition
// detail across the whole table. Unlike the per-partition dispatch
// methods in dispatch.go, this is pure aggregation for reporting (e.g.
// cmd/splitkv's "info" subcommand) and introduces no new cross-partition
// invariant.
type Stats struct {
	PartitionCount int
	TotalRows      int
	TotalMem       int64
	Partitions     []PartitionStats
}

// Stats reports summary statistics about every partition currently open.
func (t *Table) Stats() (stats Stats, err error) {
	err = t.withReadLock(func() error {
		snap, active := t.snapshotState()

		var merr *multierror.Error

		for name, p := range snap {
			rows, perr := p.Size()
			if perr != nil {
				merr = multierror.Append(merr, wrapIOError("size", name, perr))
				continue
			}

			mem, merr2 := p.Mem()
			if merr2 != nil {
				merr = multierror.Append(merr, wrapIOError("mem", name, merr2))
				continue
			}

			created, cerr := ParseFilenameTime(t.cfg.Prefix, name)

			ps := PartitionStats{
				Filename: name,
				Active:   name == active,
				Rows:     rows,
				Mem:      mem,
			}

			if cerr == nil {
				ps.Created = created.UTC().Format(timestampLayout)
			}

			stats.Partitions = append(stats.Partitions, ps)
			stats.TotalRows += rows
			stats.TotalMem += mem
		}

		stats.PartitionCount = len(stats.Partitions)

		sort.Slice(stats.Partitions, func(i, j int) bool {
			return stats.Partitions[i].Filename < stats.Partitions[j].Filename
		})

		return merr.ErrorOrNil()
	})

	return stats, err
}
