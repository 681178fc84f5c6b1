package graph

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApplyStatus int

const (
	ApplyStatusInApproval ApplyStatus = 0
	ApplyStatusCompleted  ApplyStatus = 1
	ApplyStatusRejected   ApplyStatus = 2
	ApplyStatusWithdrawn  ApplyStatus = 3
)

// Application is the aggregate root for one submission attempt of one task.
// apply_id is a Snowflake-derived decimal string (internal/snowflake),
// stored as text to preserve exact value across 64-bit boundaries.
type Application struct {
	ApplyID   string         `gorm:"column:apply_id;primaryKey" json:"applyId"`
	ApplyType string         `gorm:"column:apply_type;not null;default:task" json:"applyType"`
	Status    ApplyStatus    `gorm:"column:apply_status;not null;default:0;index" json:"status"`
	CreatedAt time.Time      `gorm:"column:create_time;not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:update_time;not null" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Application) TableName() string { return "apply" }

// ApprovalRule is the per-Application routing state: the immutable ordered
// node list copied from the task at submit time, the growing approved
// prefix, and the current cursor.
type ApprovalRule struct {
	ApplyID        string         `gorm:"column:apply_id;primaryKey" json:"applyId"`
	Nodes          datatypes.JSON `gorm:"column:nodes;not null" json:"nodes"`
	ApprovedNodes  datatypes.JSON `gorm:"column:approved_nodes" json:"approvedNodes"`
	CurrentCursor  *int64         `gorm:"column:current_cursor" json:"currentCursor,omitempty"`
	CreatedAt      time.Time      `gorm:"column:create_time;not null" json:"-"`
	UpdatedAt      time.Time      `gorm:"column:update_time;not null" json:"-"`
}

func (ApprovalRule) TableName() string { return "apply_approval_rule" }

type ApprovalResult int

const (
	ApprovalResultSubmit  ApprovalResult = 0
	ApprovalResultApprove ApprovalResult = 1
	ApprovalResultReject  ApprovalResult = 2
)

// ApprovalLog is an append-only audit trail entry for one node transition.
type ApprovalLog struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ApplyID     string         `gorm:"column:apply_id;not null;index" json:"applyId"`
	Node        int64          `gorm:"column:node;not null" json:"node"`
	Approver    string         `gorm:"column:approver_job_number;not null" json:"approver"`
	Result      ApprovalResult `gorm:"column:result;not null" json:"result"`
	Comment     string         `gorm:"column:comment" json:"comment,omitempty"`
	Attachments datatypes.JSON `gorm:"column:attachments" json:"attachments,omitempty"`
	StartTime   time.Time      `gorm:"column:start_time;not null" json:"startTime"`
	EndTime     *time.Time     `gorm:"column:end_time" json:"endTime,omitempty"`
}

func (ApprovalLog) TableName() string { return "apply_approval_log" }

// TaskApplyDetail stores the payload the submitter attached when opening the
// Application.
type TaskApplyDetail struct {
	ApplyID           string         `gorm:"column:apply_id;primaryKey" json:"applyId"`
	TaskExecutionID   int64          `gorm:"column:task_execution_id;not null;index" json:"taskExecutionId"`
	SubmitterText     string         `gorm:"column:submit_text" json:"submitText,omitempty"`
	SubmitterAttachments datatypes.JSON `gorm:"column:submit_images" json:"submitImages,omitempty"`
	SubmitTime        time.Time      `gorm:"column:submit_time;not null" json:"submitTime"`
}

func (TaskApplyDetail) TableName() string { return "todo_task_apply" }
