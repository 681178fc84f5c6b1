package directory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yungbote/neurobridge-backend/internal/platform/envutil"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// Snapshot is the on-disk shape of a periodic HR sync dump: a flat list of
// employees and departments, refreshed out-of-band by whatever job owns the
// external sync (spec §1/§5 place that sync outside this engine's scope).
type Snapshot struct {
	Employees   []Employee   `json:"employees"`
	Departments []Department `json:"departments"`
}

// LoadFromEnv builds an InMemory Directory from the JSON file named by
// DIRECTORY_SNAPSHOT_PATH, following the same GetEnv-with-fallback wiring
// convention the rest of this codebase uses for optional external inputs.
// A missing or empty path yields an empty directory rather than an error:
// the core must still run (and fail its own authorization checks cleanly)
// when the HR sync hasn't populated anything yet.
func LoadFromEnv(log *logger.Logger) (*InMemory, error) {
	path := envutil.GetEnv("DIRECTORY_SNAPSHOT_PATH", "", log)
	dir := NewInMemory()
	if path == "" {
		return dir, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory snapshot %q: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse directory snapshot %q: %w", path, err)
	}
	for _, e := range snap.Employees {
		dir.AddEmployee(e)
	}
	for _, d := range snap.Departments {
		dir.AddDepartment(d)
	}
	return dir, nil
}
