// Package snowflake generates apply_id values for Application aggregates.
//
// Bit layout (64 bits, matching the original apply_id_generator.py exactly):
// 41 bits ms-since-epoch | 5 bits datacenter | 5 bits worker | 12 bits sequence.
package snowflake

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	workerIDBits     = 5
	datacenterIDBits = 5
	sequenceBits     = 12

	maxWorkerID     = (1 << workerIDBits) - 1
	maxDatacenterID = (1 << datacenterIDBits) - 1
	sequenceMask    = (1 << sequenceBits) - 1

	workerIDShift     = sequenceBits
	datacenterIDShift = sequenceBits + workerIDBits
	timestampShift    = sequenceBits + workerIDBits + datacenterIDBits

	// epochMillis is 2024-01-01T00:00:00Z in milliseconds since Unix epoch.
	epochMillis int64 = 1704067200000
)

// Generator is a single-node Snowflake-style ID generator. Safe for
// concurrent use; one Generator should be shared by the whole process.
type Generator struct {
	mu            sync.Mutex
	workerID      int64
	datacenterID  int64
	sequence      int64
	lastTimestamp int64
}

func NewGenerator(workerID, datacenterID int64) (*Generator, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("snowflake: worker_id must be between 0 and %d", maxWorkerID)
	}
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, fmt.Errorf("snowflake: datacenter_id must be between 0 and %d", maxDatacenterID)
	}
	return &Generator{
		workerID:      workerID,
		datacenterID:  datacenterID,
		lastTimestamp: -1,
	}, nil
}

// Generate returns the next ID as a decimal string. It is a hard error —
// not a retry — if the system clock has moved backwards since the last call.
func (g *Generator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := currentMillis()

	if ts < g.lastTimestamp {
		drift := g.lastTimestamp - ts
		return "", fmt.Errorf("snowflake: clock moved backwards, refusing to generate id for %dms", drift)
	}

	if ts == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			ts = waitNextMillis(g.lastTimestamp)
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = ts

	id := ((ts - epochMillis) << timestampShift) |
		(g.datacenterID << datacenterIDShift) |
		(g.workerID << workerIDShift) |
		g.sequence

	return strconv.FormatInt(id, 10), nil
}

func currentMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

func waitNextMillis(last int64) int64 {
	ts := currentMillis()
	for ts <= last {
		ts = currentMillis()
	}
	return ts
}

var (
	defaultOnce   sync.Once
	defaultGen    *Generator
	defaultIDs    = [2]int64{1, 1} // worker, datacenter — overridable via SetDefault before first Default() call
)

// Default returns the process-wide singleton generator, matching the
// original's get_instance() classmethod. Configure worker/datacenter IDs via
// SetDefault before first use in app wiring; falls back to (1, 1) otherwise.
func Default() *Generator {
	defaultOnce.Do(func() {
		g, err := NewGenerator(defaultIDs[0], defaultIDs[1])
		if err != nil {
			panic(err)
		}
		defaultGen = g
	})
	return defaultGen
}

// SetDefault configures the worker/datacenter IDs used by the next Default()
// call. Must be called during app wiring, before anything calls Default();
// it has no effect afterwards, matching the original's lazily-initialized
// singleton semantics.
func SetDefault(workerID, datacenterID int64) {
	defaultIDs = [2]int64{workerID, datacenterID}
}
