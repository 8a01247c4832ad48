package splitkv

import (
	"runtime"
	"time"

	"github.com/inconshreveable/log15"
)

// Config configures a Table, following the flat-struct-plus-validate shape
// of bolt.Config in the wtsi-hgi/wrstat-ui backend.
type Config struct {
	// Dir is the directory scanned for and written to for this table's
	// partition files.
	Dir string

	// Prefix is the partition filename prefix and logical table name.
	Prefix string

	// RowDef is the fixed row schema shared by every partition.
	RowDef RowDef

	// AgeLimit and SizeLimit are the rollover thresholds of §4.6.
	AgeLimit  time.Duration
	SizeLimit int64

	// UseTailCache and ExceedLargeLimit are pass-through hints forwarded
	// to PartitionStore constructors (§3).
	UseTailCache     bool
	ExceedLargeLimit bool

	// Open is the PartitionOpener used to open or create partition files.
	// Required.
	Open PartitionOpener

	// StaticRAMNeed predicts a partition's RAM footprint without opening
	// it (§4.3). Required.
	StaticRAMNeed StaticRAMNeedFunc

	// BufferSize and InitialCapacity are forwarded to PartitionOpener.
	BufferSize      int
	InitialCapacity int

	// Log receives structural lifecycle and recoverable-error events. If
	// nil, a discard logger is used.
	Log log15.Logger

	// Now, if set, overrides time.Now for testing rollover and filename
	// generation deterministically.
	Now func() time.Time
}

func (c *Config) setDefaults() error {
	if c.Dir == "" || c.Prefix == "" {
		return Error("dir and prefix are required")
	}

	if c.Open == nil || c.StaticRAMNeed == nil {
		return Error("Open and StaticRAMNeed are required")
	}

	c.RowDef = c.RowDef.Normalized()

	if c.AgeLimit <= 0 {
		c.AgeLimit = 24 * time.Hour
	}

	if c.SizeLimit <= 0 {
		c.SizeLimit = 1 << 30
	}

	if c.Log == nil {
		c.Log = log15.New()
		c.Log.SetHandler(log15.DiscardHandler())
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// executorSize implements §4.5's "thread pool size =
// max(partitionCount, hardwareParallelism) + 1" rule.
func executorSize(partitionCount int) int {
	n := runtime.GOMAXPROCS(0)
	if partitionCount > n {
		n = partitionCount
	}

	return n + 1
}
