package splitkv

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNeedsRolloverWhenNoActivePartition(t *testing.T) {
	Convey("needsRollover is true when no partition is active yet", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		need, err := table.needsRollover()
		So(err, ShouldBeNil)
		So(need, ShouldBeTrue)
	})
}

func TestNeedsRolloverBySize(t *testing.T) {
	Convey("needsRollover becomes true once the active partition exceeds sizeLimit", t, func() {
		table := openTestTable(t, func(c *Config) { c.SizeLimit = 1 })
		defer table.Close()

		_, err := table.Put(row4(1, 'A'))
		So(err, ShouldBeNil)

		table.regMu.Lock()
		need, err := table.needsRollover()
		table.regMu.Unlock()

		So(err, ShouldBeNil)
		So(need, ShouldBeTrue)
	})
}

func TestNeedsRolloverByAge(t *testing.T) {
	Convey("needsRollover becomes true once the active partition exceeds ageLimit", t, func() {
		now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

		table := openTestTable(t, func(c *Config) {
			c.AgeLimit = time.Minute
			c.Now = func() time.Time { return now }
		})
		defer table.Close()

		_, err := table.Put(row4(1, 'A'))
		So(err, ShouldBeNil)

		table.regMu.Lock()
		need, err := table.needsRollover()
		table.regMu.Unlock()
		So(err, ShouldBeNil)
		So(need, ShouldBeFalse)

		now = now.Add(2 * time.Minute)

		table.regMu.Lock()
		need, err = table.needsRollover()
		table.regMu.Unlock()
		So(err, ShouldBeNil)
		So(need, ShouldBeTrue)
	})
}

func TestRolloverCreatesNewActivePartitionWithLaterTimestamp(t *testing.T) {
	Convey("rollover's new partition has a strictly later timestamp and leaves the old one untouched", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		_, err := table.Put(row4(1, 'A'))
		So(err, ShouldBeNil)

		oldActive := table.active
		oldCreated, err := ParseFilenameTime(table.cfg.Prefix, oldActive)
		So(err, ShouldBeNil)

		table.cfg.Now = func() time.Time { return time.Now().Add(time.Hour) }

		forceRollover(t, table)

		newActive := table.active
		So(newActive, ShouldNotEqual, oldActive)

		newCreated, err := ParseFilenameTime(table.cfg.Prefix, newActive)
		So(err, ShouldBeNil)
		So(newCreated.After(oldCreated), ShouldBeTrue)

		oldRow, ok, err := table.partitions[oldActive].Get(key4(1), false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(oldRow, ShouldResemble, row4(1, 'A'))
	})
}

func TestWriteTargetReusesActiveUntilThresholdCrossed(t *testing.T) {
	Convey("writeTarget reuses the active partition while under threshold", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		table.regMu.Lock()
		first, err := table.writeTarget()
		So(err, ShouldBeNil)
		firstActive := table.active
		table.regMu.Unlock()

		table.regMu.Lock()
		second, err := table.writeTarget()
		So(err, ShouldBeNil)
		table.regMu.Unlock()

		So(table.active, ShouldEqual, firstActive)
		So(second, ShouldEqual, first)
	})
}
