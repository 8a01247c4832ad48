package splitkv

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// TestUniqueResidencyAndTotalSize runs a random sequence of put/replace/
// delete/remove and checks invariants 1 and 2 of the testable properties
// after every step: each live key has exactly one keeper, and the table's
// reported size equals the sum of each partition's own size.
func TestUniqueResidencyAndTotalSize(t *testing.T) {
	Convey("random put/replace/delete/remove preserves unique residency and total size", t, func() {
		table := openTestTable(t, func(c *Config) {
			c.SizeLimit = 256
		})
		defer table.Close()

		rng := rand.New(rand.NewSource(42))
		live := map[uint32]bool{}

		for i := 0; i < 200; i++ {
			key := uint32(rng.Intn(20))

			switch rng.Intn(4) {
			case 0:
				_, err := table.Put(row4(key, byte(i)))
				So(err, ShouldBeNil)
				live[key] = true
			case 1:
				_, _, err := table.Replace(row4(key, byte(i)))
				So(err, ShouldBeNil)
				live[key] = true
			case 2:
				_, err := table.Delete(key4(key))
				So(err, ShouldBeNil)
				delete(live, key)
			case 3:
				_, _, err := table.Remove(key4(key))
				So(err, ShouldBeNil)
				delete(live, key)
			}

			assertUniqueResidency(t, table, live)
			assertTotalSizeEquality(t, table)
		}
	})
}

func assertUniqueResidency(t *testing.T, table *Table, live map[uint32]bool) {
	t.Helper()

	for key := range live {
		keepers := 0

		for _, p := range table.snapshotPartitions() {
			ok, err := p.Has(key4(key))
			So(err, ShouldBeNil)

			if ok {
				keepers++
			}
		}

		So(keepers, ShouldEqual, 1)
	}
}

func assertTotalSizeEquality(t *testing.T, table *Table) {
	t.Helper()

	total, err := table.Size()
	So(err, ShouldBeNil)

	var sum int
	for _, p := range table.snapshotPartitions() {
		n, err := p.Size()
		So(err, ShouldBeNil)
		sum += n
	}

	So(total, ShouldEqual, sum)
}

func TestRoundTripPutGet(t *testing.T) {
	Convey("put(row); get(row.key) returns row", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		for i := uint32(0); i < 30; i++ {
			row := row4(i, byte(i))

			_, err := table.Put(row)
			So(err, ShouldBeNil)

			got, ok, err := table.Get(key4(i), false)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(got, ShouldResemble, row)
		}
	})
}

func TestIdempotentReplace(t *testing.T) {
	Convey("replace(r); replace(r) leaves state unchanged and the second call returns r", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		r := row4(7, 'X')

		prev, had, err := table.Replace(r)
		So(err, ShouldBeNil)
		So(had, ShouldBeFalse)
		So(prev, ShouldBeNil)

		prev2, had2, err := table.Replace(r)
		So(err, ShouldBeNil)
		So(had2, ShouldBeTrue)
		So(prev2, ShouldResemble, r)

		size, err := table.Size()
		So(err, ShouldBeNil)
		So(size, ShouldEqual, 1)
	})
}

func TestOrderedMergeAscendingAndDescending(t *testing.T) {
	Convey("keys(ascending) is sorted; keys(descending) is the reverse", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		order := []uint32{5, 1, 9, 3, 7}
		for _, k := range order {
			_, err := table.Put(row4(k, byte(k)))
			So(err, ShouldBeNil)
		}

		asc := collectKeys(t, table, true)
		desc := collectKeys(t, table, false)

		So(asc, ShouldResemble, []uint32{1, 3, 5, 7, 9})
		So(desc, ShouldResemble, reverseUint32(asc))
	})
}

func collectKeys(t *testing.T, table *Table, ascending bool) []uint32 {
	t.Helper()

	stream, err := table.Keys(ascending, nil)
	So(err, ShouldBeNil)
	defer stream.Close()

	var got []uint32
	for {
		k, ok, err := stream.Next()
		So(err, ShouldBeNil)
		if !ok {
			break
		}
		got = append(got, keyToUint32(k))
	}

	return got
}

func keyToUint32(k []byte) uint32 {
	var v uint32
	for _, b := range k {
		v = v<<8 | uint32(b)
	}

	return v
}

func reverseUint32(in []uint32) []uint32 {
	out := make([]uint32, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}

	return out
}

func TestExtremumKeys(t *testing.T) {
	Convey("smallestKey/largestKey hold across partitions", t, func() {
		table := openTestTable(t, nil)
		defer table.Close()

		_, err := table.Put(row4(10, 'A'))
		So(err, ShouldBeNil)

		forceRollover(t, table)

		_, err = table.Put(row4(3, 'B'))
		So(err, ShouldBeNil)

		_, err = table.Put(row4(20, 'C'))
		So(err, ShouldBeNil)

		smallest, ok, err := table.SmallestKey()
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(smallest, ShouldResemble, key4(3))

		largest, ok, err := table.LargestKey()
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(largest, ShouldResemble, key4(20))
	})
}
