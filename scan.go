package splitkv

import (
	"os"
	"path/filepath"
	"time"

	"github.com/inconshreveable/log15"
)

// discoveredPartition is one entry yielded by scanDir: a modern partition
// filename, its parsed creation time, and its predicted RAM footprint.
type discoveredPartition struct {
	filename     string
	createdAt    time.Time
	predictedRAM int64
}

// migrateLegacy renames every "<prefix>.XXXXXX" entry under dir into the
// modern shape so the discovery pass can ingest it (§4.3 step 1). It is
// best-effort: a failure to rename an individual file is logged and does
// not abort the scan.
func migrateLegacy(dir, prefix string, now func() time.Time, log log15.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return wrapIOError("read dir", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !IsLegacyFilename(prefix, name) {
			continue
		}

		createdAt := now()
		if info, ierr := entry.Info(); ierr == nil {
			createdAt = info.ModTime()
		}

		newName, err := legacyMigratedName(dir, prefix, createdAt)
		if err != nil {
			log.Warn("legacy partition migration failed", "file", name, "err", err)
			continue
		}

		if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, newName)); err != nil {
			log.Warn("legacy partition migration failed", "file", name, "err", err)
		}
	}

	return nil
}

// legacyMigratedName derives a fully valid, parseable modern filename for a
// migrated legacy partition: its creation-time is the file's own
// modification time (falling back to now if that can't be read), formatted
// the same way FormatFilename does it, so the result is indistinguishable
// from a filename the table could have produced itself. The original
// legacy "XXXXXX" characters carry no real timestamp and are discarded
// rather than padded into one, per §4.3/§6.1. On a collision with an
// existing file (including another legacy file migrated in the same pass),
// the candidate time is nudged forward a millisecond until it names a free
// slot.
func legacyMigratedName(dir, prefix string, createdAt time.Time) (string, error) {
	const maxAttempts = 1000

	for i := 0; i < maxAttempts; i++ {
		candidate := FormatFilename(prefix, createdAt)

		_, err := os.Stat(filepath.Join(dir, candidate))
		if os.IsNotExist(err) {
			return candidate, nil
		}

		if err != nil {
			return "", err
		}

		createdAt = createdAt.Add(time.Millisecond)
	}

	return "", Error("could not derive a unique partition filename for migrated legacy file")
}

// scanDir performs the discovery sub-pass (§4.3 step 2): it lists dir,
// selects exact-length, well-formed modern partition filenames, and for
// each asks ramNeed for its predicted RAM footprint without opening it.
// Malformed names are logged and skipped, per the MalformedName policy.
func scanDir(dir, prefix string, def RowDef, ramNeed StaticRAMNeedFunc, log log15.Logger) ([]discoveredPartition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapIOError("read dir", dir, err)
	}

	found := make([]discoveredPartition, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !IsModernFilename(prefix, name) {
			continue
		}

		createdAt, err := ParseFilenameTime(prefix, name)
		if err != nil {
			log.Warn("skipping malformed partition filename", "file", name, "err", err)

			continue
		}

		path := filepath.Join(dir, name)

		ram, err := ramNeed(path, def)
		if err != nil {
			log.Warn("failed to predict partition RAM need", "file", name, "err", err)

			continue
		}

		found = append(found, discoveredPartition{
			filename:     name,
			createdAt:    createdAt,
			predictedRAM: ram,
		})
	}

	return found, nil
}
