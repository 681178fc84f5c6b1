// Package projectview answers the plan-side read surfaces of spec §6: the
// project summary list (GET /task/project/list) and a single project's full
// plan with per-entity edit eligibility (GET /task/project/{id}).
package projectview

import "time"

// Status mirrors spec §6's projectStatus enum.
type Status string

const (
	StatusNormal       Status = "normal"
	StatusAbnormal     Status = "abnormal"
	StatusUnconfigured Status = "unconfigured"
)

// Summary is one row of GET /task/project/list.
type Summary struct {
	ProjectID              int64  `json:"projectId"`
	ProjectName            string `json:"projectName"`
	StageCount             int    `json:"stageCount"`
	TaskCount              int    `json:"taskCount"`
	ProjectStatus          Status `json:"projectStatus"`
	MissingInfoCount       int    `json:"missingInfoCount"`
	TimeRelationErrorCount int    `json:"timeRelationErrorCount"`
	UnassignedStageCount   int    `json:"unassignedStageCount"`
	TasksGenerated         bool   `json:"tasksGenerated"`
}

// StageView is one stage in a project's full plan, with materialization
// status folded in as isEditable.
type StageView struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	StartTime         *time.Time `json:"startTime,omitempty"`
	EndTime           *time.Time `json:"endTime,omitempty"`
	Duration          *int       `json:"duration,omitempty"`
	PredecessorStages []int64    `json:"predecessorStages"`
	SuccessorStages   []int64    `json:"successorStages"`
	IsEditable        bool       `json:"isEditable"`
}

// TaskView is one task in a project's full plan.
type TaskView struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	Duration         *int       `json:"duration,omitempty"`
	JobNumber        string     `json:"jobNumber,omitempty"`
	StageID          *int64     `json:"stageId,omitempty"`
	PredecessorTasks []int64    `json:"predecessorTasks"`
	SuccessorTasks   []int64    `json:"successorTasks"`
	ApprovalType     string     `json:"approvalType,omitempty"`
	ApprovalNodes    []int64    `json:"approvalNodes"`
	IsEditable       bool       `json:"isEditable"`
}

// Detail is the full response of GET /task/project/{id} (and the body echoed
// back by POST /task/save and /task/save-and-generate).
type Detail struct {
	ProjectID      int64       `json:"projectId"`
	TasksGenerated bool        `json:"tasksGenerated"`
	Stages         []StageView `json:"stages"`
	Tasks          []TaskView  `json:"tasks"`
}
