package graph

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StageStatus int

const (
	StageStatusNotStarted StageStatus = 0
	StageStatusInProgress StageStatus = 1
	StageStatusCompleted  StageStatus = 2
)

type TaskStatus int

const (
	TaskStatusNotStarted TaskStatus = 0
	TaskStatusInProgress TaskStatus = 1
	TaskStatusSubmitted  TaskStatus = 2
	TaskStatusCompleted  TaskStatus = 3
	TaskStatusRejected   TaskStatus = 4
)

// StageExecution is the materialized instance of a Stage. PredecessorStages
// is a frozen snapshot taken at materialization time (see DESIGN.md's
// resolved open question); SuccessorStages is live-synced by the reconciler
// whenever the owning Stage's successor edges are augmented post-generation.
type StageExecution struct {
	StageID            int64          `gorm:"column:stage_id;primaryKey" json:"stageId"`
	ProjectID          int64          `gorm:"column:project_id;not null;index" json:"projectId"`
	Status             StageStatus    `gorm:"column:stage_status;not null;default:1;index" json:"status"`
	PredecessorStages  datatypes.JSON `gorm:"column:predecessor_stages" json:"predecessorStages"`
	SuccessorStages    datatypes.JSON `gorm:"column:successor_stages" json:"successorStages"`
	ActualStartTime    *time.Time     `gorm:"column:actual_start_time" json:"actualStartTime,omitempty"`
	ActualCompleteTime *time.Time     `gorm:"column:actual_complete_time" json:"actualCompleteTime,omitempty"`
	CreatedAt          time.Time      `gorm:"column:create_time;not null" json:"-"`
	UpdatedAt          time.Time      `gorm:"column:update_time;not null" json:"-"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (StageExecution) TableName() string { return "todo_stage" }

// TaskExecution is the materialized instance of a Task. name/description/
// dates/job_number/approval_nodes are snapshotted from the plan at
// materialization time (Edit Guard keeps them frozen once this row exists).
type TaskExecution struct {
	ID                 int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TaskID             int64          `gorm:"column:task_id;uniqueIndex;not null" json:"taskId"`
	ProjectID          int64          `gorm:"column:project_id;not null;index" json:"projectId"`
	StageID            *int64         `gorm:"column:stage_id;index" json:"stageId,omitempty"`
	Name               string         `gorm:"column:name;not null" json:"name"`
	Description        string         `gorm:"column:description" json:"description,omitempty"`
	StartDate          *time.Time     `gorm:"column:start_date" json:"startTime,omitempty"`
	EndDate            *time.Time     `gorm:"column:end_date" json:"endTime,omitempty"`
	Duration           *int           `gorm:"column:duration" json:"duration,omitempty"`
	JobNumber          string         `gorm:"column:job_number" json:"jobNumber,omitempty"`
	PredecessorTasks   datatypes.JSON `gorm:"column:predecessor_tasks" json:"predecessorTasks"`
	SuccessorTasks     datatypes.JSON `gorm:"column:successor_tasks" json:"successorTasks"`
	ApprovalNodes      datatypes.JSON `gorm:"column:approval_nodes" json:"approvalNodes"`
	Status             TaskStatus     `gorm:"column:task_status;not null;default:1;index" json:"status"`
	IsSkipped          bool           `gorm:"column:is_skipped;not null;default:false" json:"isSkipped"`
	ActualStartTime    *time.Time     `gorm:"column:actual_start_time" json:"actualStartTime,omitempty"`
	ActualCompleteTime *time.Time     `gorm:"column:actual_complete_time" json:"actualCompleteTime,omitempty"`
	CreatedAt          time.Time      `gorm:"column:create_time;not null" json:"-"`
	UpdatedAt          time.Time      `gorm:"column:update_time;not null" json:"-"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TaskExecution) TableName() string { return "todo_task" }
