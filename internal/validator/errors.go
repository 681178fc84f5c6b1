package validator

import "fmt"

// ValidationError names the offending entity and the rule it broke, so the
// HTTP layer can surface a single message identifying the entity by name
// (spec §7, kind 2).
type ValidationError struct {
	EntityKind string // "stage" | "task"
	EntityName string
	EntityID   int64
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed for %s %q (id=%d): %s", e.EntityKind, e.EntityKind, e.EntityName, e.EntityID, e.Reason)
}

func newStageErr(s StagePayload, reason string) *ValidationError {
	return &ValidationError{EntityKind: "stage", EntityName: s.Name, EntityID: s.ID, Reason: reason}
}

func newTaskErr(t TaskPayload, reason string) *ValidationError {
	return &ValidationError{EntityKind: "task", EntityName: t.Name, EntityID: t.ID, Reason: reason}
}
