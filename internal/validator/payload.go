// Package validator performs pure, DB-free structural validation of a
// client-submitted project graph (spec §4.2). It never touches the database;
// database-dependent consistency checks belong to internal/reconcile.
package validator

// StagePayload is one stage entry of a TaskConfigPayload. ID may be
// non-positive (temp) or positive (real) per spec §3/§6.
type StagePayload struct {
	ID                int64
	Name              string
	StartTime         *string // YYYY-MM-DD
	EndTime           *string
	Duration          *int
	PredecessorStages []int64
	SuccessorStages   []int64
	Position          map[string]any
	ProjectID         int64
}

type ApprovalType string

const (
	ApprovalTypeNone       ApprovalType = "none"
	ApprovalTypeSpecified  ApprovalType = "specified"
	ApprovalTypeSequential ApprovalType = "sequential"
)

// TaskPayload is one task entry of a TaskConfigPayload.
type TaskPayload struct {
	ID               int64
	Name             string
	Description      string
	StartTime        *string
	EndTime          *string
	Duration         *int
	JobNumber        string
	StageID          *int64
	PredecessorTasks []int64
	SuccessorTasks   []int64
	Position         map[string]any
	ProjectID        int64
	ApprovalType     ApprovalType
	ApprovalNodes    []int64
}

// TaskConfigPayload is the full client-submitted graph for one project
// (spec §6's TaskConfigPayload schema).
type TaskConfigPayload struct {
	ProjectID int64
	Stages    []StagePayload
	Tasks     []TaskPayload
}
