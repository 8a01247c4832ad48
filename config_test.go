package splitkv

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/wtsi-hgi/splitkv/partstore"
)

func TestSetDefaultsRejectsMissingRequiredFields(t *testing.T) {
	Convey("setDefaults requires Dir, Prefix, Open and StaticRAMNeed", t, func() {
		base := Config{
			Dir:           "x",
			Prefix:        "t",
			Open:          partstore.Open,
			StaticRAMNeed: partstore.StaticRAMNeed,
		}

		So(base.setDefaults(), ShouldBeNil)

		missingDir := base
		missingDir.Dir = ""
		So(missingDir.setDefaults(), ShouldNotBeNil)

		missingPrefix := base
		missingPrefix.Prefix = ""
		So(missingPrefix.setDefaults(), ShouldNotBeNil)

		missingOpen := base
		missingOpen.Open = nil
		So(missingOpen.setDefaults(), ShouldNotBeNil)

		missingRAM := base
		missingRAM.StaticRAMNeed = nil
		So(missingRAM.setDefaults(), ShouldNotBeNil)
	})
}

func TestSetDefaultsFillsThresholdsAndLogger(t *testing.T) {
	Convey("setDefaults fills AgeLimit, SizeLimit, Log and Now when unset", t, func() {
		cfg := Config{
			Dir:           "x",
			Prefix:        "t",
			Open:          partstore.Open,
			StaticRAMNeed: partstore.StaticRAMNeed,
		}

		So(cfg.setDefaults(), ShouldBeNil)

		So(cfg.AgeLimit, ShouldEqual, 24*time.Hour)
		So(cfg.SizeLimit, ShouldEqual, int64(1<<30))
		So(cfg.Log, ShouldNotBeNil)
		So(cfg.Now, ShouldNotBeNil)
	})
}

func TestSetDefaultsPreservesExplicitValues(t *testing.T) {
	Convey("setDefaults leaves explicitly configured thresholds alone", t, func() {
		fixedNow := func() time.Time { return time.Unix(0, 0) }

		cfg := Config{
			Dir:           "x",
			Prefix:        "t",
			Open:          partstore.Open,
			StaticRAMNeed: partstore.StaticRAMNeed,
			AgeLimit:      time.Minute,
			SizeLimit:     128,
			Now:           fixedNow,
		}

		So(cfg.setDefaults(), ShouldBeNil)

		So(cfg.AgeLimit, ShouldEqual, time.Minute)
		So(cfg.SizeLimit, ShouldEqual, int64(128))
		So(cfg.Now(), ShouldResemble, fixedNow())
	})
}

func TestExecutorSizeCoversPartitionFanOut(t *testing.T) {
	Convey("executorSize never shrinks below the partition count", t, func() {
		So(executorSize(0), ShouldBeGreaterThan, 0)
		So(executorSize(1000), ShouldBeGreaterThanOrEqualTo, 1001)
	})
}
