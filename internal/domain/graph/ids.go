package graph

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// EncodeIDs serializes an []int64 edge list into a jsonb column value. A nil
// or empty slice encodes as an empty JSON array, never SQL NULL, so repo
// reads never need to special-case NULL vs. empty.
func EncodeIDs(ids []int64) datatypes.JSON {
	if ids == nil {
		ids = []int64{}
	}
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}

// DecodeIDs parses a jsonb edge-list column back into []int64. Absent or
// malformed input decodes to an empty (non-nil) slice, matching the
// reference implementation's try/except-then-empty-list fallback.
func DecodeIDs(raw datatypes.JSON) []int64 {
	if len(raw) == 0 {
		return []int64{}
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []int64{}
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids
}
