package splitkv

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOpenWarmsUpExistingPartitionsAndPicksNewestActive(t *testing.T) {
	Convey("re-opening a directory with several partitions warms them all up and activates the newest", t, func() {
		dir := t.TempDir()

		table := openTestTable(t, func(c *Config) { c.Dir = dir })

		_, err := table.Put(row4(1, 'A'))
		So(err, ShouldBeNil)

		forceRollover(t, table)

		_, err = table.Put(row4(2, 'B'))
		So(err, ShouldBeNil)

		wantActive := table.active

		So(table.Close(), ShouldBeNil)

		reopened := openTestTable(t, func(c *Config) { c.Dir = dir })
		defer reopened.Close()

		So(reopened.partitions, ShouldHaveLength, 2)
		So(reopened.active, ShouldEqual, wantActive)

		row, ok, err := reopened.Get(key4(1), false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(row, ShouldResemble, row4(1, 'A'))
	})
}

func TestAssertActiveInvariantHoldsAfterOpen(t *testing.T) {
	Convey("after Open, active (if set) names an open partition", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		_, err := table.Put(row4(1, 'A'))
		So(err, ShouldBeNil)

		So(table.Close(), ShouldBeNil)

		// re-open should not panic via assertActiveInvariant
		reopened := openTestTable(t, func(c *Config) { c.Dir = table.cfg.Dir })
		defer reopened.Close()

		_, ok := reopened.partitions[reopened.active]
		So(ok, ShouldBeTrue)
	})
}
