package splitkv

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStatsReportsPerPartitionAndTotals(t *testing.T) {
	Convey("Stats reports one row per partition plus accurate totals", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		_, err := table.Put(row4(1, 'A'))
		So(err, ShouldBeNil)

		forceRollover(t, table)

		_, err = table.Put(row4(2, 'B'))
		So(err, ShouldBeNil)
		_, err = table.Put(row4(3, 'C'))
		So(err, ShouldBeNil)

		stats, err := table.Stats()
		So(err, ShouldBeNil)

		So(stats.PartitionCount, ShouldEqual, 2)
		So(stats.TotalRows, ShouldEqual, 3)
		So(stats.Partitions, ShouldHaveLength, 2)

		var activeCount int
		for _, p := range stats.Partitions {
			So(p.Created, ShouldNotBeEmpty)

			if p.Active {
				activeCount++
				So(p.Filename, ShouldEqual, table.active)
			}
		}

		So(activeCount, ShouldEqual, 1)
	})
}

func TestStatsOnEmptyTable(t *testing.T) {
	Convey("Stats on an empty table reports zero partitions and zero totals", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		stats, err := table.Stats()
		So(err, ShouldBeNil)

		So(stats.PartitionCount, ShouldEqual, 0)
		So(stats.TotalRows, ShouldEqual, 0)
		So(stats.TotalMem, ShouldEqual, int64(0))
		So(stats.Partitions, ShouldBeEmpty)
	})
}
