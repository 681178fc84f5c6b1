package graph

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApprovalType enumerates how a task's submission is routed for approval.
type ApprovalType string

const (
	ApprovalTypeNone       ApprovalType = "none"
	ApprovalTypeSpecified  ApprovalType = "specified"
	ApprovalTypeSequential ApprovalType = "sequential"
)

// Stage is the plan-side description of a project phase. Edges are stored as
// int64 arrays serialized into jsonb via datatypes.JSON; the Graph Store
// reads/writes them as []int64 through the repo layer, never as raw SQL.
type Stage struct {
	ID                 int64          `gorm:"column:stage_id;primaryKey;autoIncrement" json:"id"`
	ProjectID          int64          `gorm:"column:project_id;not null;index" json:"projectId"`
	Name               string         `gorm:"column:name;not null" json:"name"`
	StartDate          *time.Time     `gorm:"column:start_date" json:"startTime,omitempty"`
	EndDate            *time.Time     `gorm:"column:end_date" json:"endTime,omitempty"`
	DurationDays       *int           `gorm:"column:duration_days" json:"duration,omitempty"`
	PredecessorStages  datatypes.JSON `gorm:"column:predecessor_stages" json:"predecessorStages"`
	SuccessorStages    datatypes.JSON `gorm:"column:successor_stages" json:"successorStages"`
	LayoutBlob         datatypes.JSON `gorm:"column:layout_blob" json:"position,omitempty"`
	Enable             bool           `gorm:"column:enable;not null;default:true;index" json:"-"`
	CreatedAt          time.Time      `gorm:"column:create_time;not null" json:"-"`
	UpdatedAt          time.Time      `gorm:"column:update_time;not null" json:"-"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Stage) TableName() string { return "proj_stage" }

// Task is the plan-side description of a unit of work within (optionally) a
// stage. approval_nodes is an ordered list of organization-position IDs.
type Task struct {
	ID                int64          `gorm:"column:task_id;primaryKey;autoIncrement" json:"id"`
	ProjectID         int64          `gorm:"column:project_id;not null;index" json:"projectId"`
	StageID           *int64         `gorm:"column:stage_id;index" json:"stageId,omitempty"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	Description       string         `gorm:"column:description" json:"description,omitempty"`
	StartDate         *time.Time     `gorm:"column:start_date" json:"startTime,omitempty"`
	EndDate           *time.Time     `gorm:"column:end_date" json:"endTime,omitempty"`
	Duration          *int           `gorm:"column:duration" json:"duration,omitempty"`
	JobNumber         string         `gorm:"column:job_number" json:"jobNumber,omitempty"`
	PredecessorTasks  datatypes.JSON `gorm:"column:predecessor_tasks" json:"predecessorTasks"`
	SuccessorTasks    datatypes.JSON `gorm:"column:successor_tasks" json:"successorTasks"`
	ApprovalType      ApprovalType   `gorm:"column:approval_type;default:none" json:"approvalType,omitempty"`
	ApprovalNodes     datatypes.JSON `gorm:"column:approval_nodes" json:"approvalNodes"`
	LayoutBlob        datatypes.JSON `gorm:"column:layout_blob" json:"position,omitempty"`
	Enable            bool           `gorm:"column:enable;not null;default:true;index" json:"-"`
	CreatedAt         time.Time      `gorm:"column:create_time;not null" json:"-"`
	UpdatedAt         time.Time      `gorm:"column:update_time;not null" json:"-"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Task) TableName() string { return "proj_task" }
