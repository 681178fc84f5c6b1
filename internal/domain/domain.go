package domain

import (
	"github.com/yungbote/neurobridge-backend/internal/domain/graph"
)

type (
	Stage           = graph.Stage
	Task            = graph.Task
	StageExecution  = graph.StageExecution
	TaskExecution   = graph.TaskExecution
	Application     = graph.Application
	ApprovalRule    = graph.ApprovalRule
	ApprovalLog     = graph.ApprovalLog
	TaskApplyDetail = graph.TaskApplyDetail

	ApprovalType   = graph.ApprovalType
	StageStatus    = graph.StageStatus
	TaskStatus     = graph.TaskStatus
	ApplyStatus    = graph.ApplyStatus
	ApprovalResult = graph.ApprovalResult
)

const (
	ApprovalTypeNone       = graph.ApprovalTypeNone
	ApprovalTypeSpecified  = graph.ApprovalTypeSpecified
	ApprovalTypeSequential = graph.ApprovalTypeSequential

	StageStatusNotStarted = graph.StageStatusNotStarted
	StageStatusInProgress = graph.StageStatusInProgress
	StageStatusCompleted  = graph.StageStatusCompleted

	TaskStatusNotStarted = graph.TaskStatusNotStarted
	TaskStatusInProgress = graph.TaskStatusInProgress
	TaskStatusSubmitted  = graph.TaskStatusSubmitted
	TaskStatusCompleted  = graph.TaskStatusCompleted
	TaskStatusRejected   = graph.TaskStatusRejected

	ApplyStatusInApproval = graph.ApplyStatusInApproval
	ApplyStatusCompleted  = graph.ApplyStatusCompleted
	ApplyStatusRejected   = graph.ApplyStatusRejected
	ApplyStatusWithdrawn  = graph.ApplyStatusWithdrawn

	ApprovalResultSubmit  = graph.ApprovalResultSubmit
	ApprovalResultApprove = graph.ApprovalResultApprove
	ApprovalResultReject  = graph.ApprovalResultReject
)

// EncodeIDs/DecodeIDs re-export the edge-list jsonb codec so repos never
// import internal/domain/graph directly (avoids a package-name collision
// with internal/data/repos/graph).
var (
	EncodeIDs = graph.EncodeIDs
	DecodeIDs = graph.DecodeIDs
)
