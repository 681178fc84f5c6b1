package reconcile

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func encodePosition(pos map[string]any) datatypes.JSON {
	if pos == nil {
		return datatypes.JSON("{}")
	}
	b, err := json.Marshal(pos)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
