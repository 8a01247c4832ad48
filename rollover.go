package splitkv

import (
	"os"
	"path/filepath"
)

// needsRollover reports whether the active partition has crossed either
// the age or the size threshold (§4.6). Caller must hold regMu.
func (t *Table) needsRollover() (bool, error) {
	if t.active == "" {
		return true, nil
	}

	createdAt, err := ParseFilenameTime(t.cfg.Prefix, t.active)
	if err == nil && t.cfg.Now().Sub(createdAt) >= t.cfg.AgeLimit {
		return true, nil
	}

	info, err := os.Stat(filepath.Join(t.cfg.Dir, t.active))
	if err != nil {
		return false, wrapIOError("stat partition", t.active, err)
	}

	return info.Size() >= t.cfg.SizeLimit, nil
}

// rollover creates a new partition and makes it active. Caller must hold
// regMu (§4.6): the check-then-act sequence across needsRollover and
// rollover is the one structural mutation the registry monitor exists to
// serialize.
func (t *Table) rollover() error {
	name := FormatFilename(t.cfg.Prefix, t.cfg.Now())
	path := filepath.Join(t.cfg.Dir, name)

	store, err := t.openPartition(path, true)
	if err != nil {
		return wrapIOError("create partition", path, err)
	}

	t.partitions[name] = store
	t.active = name

	return nil
}

// writeTarget obtains the partition new keys should be written to: the
// active partition if it has not crossed a rollover threshold, otherwise
// a freshly rolled-over one. Caller must hold regMu (§4.6/§4.7 step 3):
// this is the inner half of the double-checked rollover sequence.
func (t *Table) writeTarget() (PartitionStore, error) {
	full, err := t.needsRollover()
	if err != nil {
		return nil, err
	}

	if full {
		if err := t.rollover(); err != nil {
			return nil, err
		}
	}

	return t.partitions[t.active], nil
}
