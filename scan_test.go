package splitkv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/inconshreveable/log15"

	"github.com/wtsi-hgi/splitkv/partstore"
)

func discardLogger() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())

	return l
}

func TestScanDirSkipsMalformedAndNonMatchingNames(t *testing.T) {
	Convey("scanDir only yields well-formed modern partitions for the given prefix", t, func() {
		dir := t.TempDir()

		good := FormatFilename("t", time.Now())
		So(os.WriteFile(filepath.Join(dir, good), nil, 0o600), ShouldBeNil)

		// wrong prefix, same shape
		So(os.WriteFile(filepath.Join(dir, FormatFilename("u", time.Now())), nil, 0o600), ShouldBeNil)

		// malformed: right length prefix/suffix but garbage timestamp
		// (17 characters between the dots, matching IsModernFilename's
		// length check, but not a valid timestamp).
		So(os.WriteFile(filepath.Join(dir, "t.garbagegarbagegar.table"), nil, 0o600), ShouldBeNil)

		// a subdirectory that happens to match the naming shape
		So(os.Mkdir(filepath.Join(dir, good+"dir"), 0o700), ShouldBeNil)

		found, err := scanDir(dir, "t", testRowDef, partstore.StaticRAMNeed, discardLogger())
		So(err, ShouldBeNil)

		So(found, ShouldHaveLength, 1)
		So(found[0].filename, ShouldEqual, good)
	})
}

func TestMigrateLegacyRenamesToModernShape(t *testing.T) {
	Convey("migrateLegacy renames every legacy file to a modern, parseable name", t, func() {
		dir := t.TempDir()

		legacy := "t.ABCDEF"
		So(os.WriteFile(filepath.Join(dir, legacy), []byte("x"), 0o600), ShouldBeNil)

		So(migrateLegacy(dir, "t", time.Now, discardLogger()), ShouldBeNil)

		entries, err := os.ReadDir(dir)
		So(err, ShouldBeNil)
		So(entries, ShouldHaveLength, 1)

		newName := entries[0].Name()
		So(newName, ShouldNotEqual, legacy)
		So(IsModernFilename("t", newName), ShouldBeTrue)

		_, err = ParseFilenameTime("t", newName)
		So(err, ShouldBeNil)
	})
}

func TestMigrateLegacyIgnoresModernFiles(t *testing.T) {
	Convey("migrateLegacy leaves modern filenames untouched", t, func() {
		dir := t.TempDir()

		modern := FormatFilename("t", time.Now())
		So(os.WriteFile(filepath.Join(dir, modern), nil, 0o600), ShouldBeNil)

		So(migrateLegacy(dir, "t", time.Now, discardLogger()), ShouldBeNil)

		_, err := os.Stat(filepath.Join(dir, modern))
		So(err, ShouldBeNil)
	})
}

func TestMigrateLegacyDisambiguatesCollidingTimestamps(t *testing.T) {
	Convey("migrateLegacy nudges forward a millisecond on a filename collision", t, func() {
		dir := t.TempDir()

		fixed := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

		So(os.WriteFile(filepath.Join(dir, FormatFilename("t", fixed)), nil, 0o600), ShouldBeNil)

		legacyPath := filepath.Join(dir, "t.ABCDEF")
		So(os.WriteFile(legacyPath, []byte("x"), 0o600), ShouldBeNil)
		// force the legacy file's mtime to collide with the modern
		// partition already seeded above, so migration must disambiguate.
		So(os.Chtimes(legacyPath, fixed, fixed), ShouldBeNil)

		So(migrateLegacy(dir, "t", func() time.Time { return fixed }, discardLogger()), ShouldBeNil)

		entries, err := os.ReadDir(dir)
		So(err, ShouldBeNil)
		So(entries, ShouldHaveLength, 2)

		for _, entry := range entries {
			So(IsModernFilename("t", entry.Name()), ShouldBeTrue)

			_, err := ParseFilenameTime("t", entry.Name())
			So(err, ShouldBeNil)
		}

		So(entries[0].Name(), ShouldNotEqual, entries[1].Name())
	})
}
