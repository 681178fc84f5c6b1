// Package query implements the Query/Projection Service (spec §4.7): three
// read views joining the Graph Store's execution tables with the external
// directory, grounded on original_source's todo_query_service.py/
// todo_query_dao.py and dept_util.py's second-level department derivation.
package query

import "time"

// TaskProjection is one task row enriched with directory and plan data, the
// shape shared by all three views (my-tasks rows, history rows, and the
// predecessor/successor entries inside task detail).
type TaskProjection struct {
	TaskID             int64      `json:"taskId"`
	TaskName           string     `json:"taskName"`
	TaskDescription    string     `json:"taskDescription,omitempty"`
	ProjectID          int64      `json:"projectId"`
	StageID            *int64     `json:"stageId,omitempty"`
	StageName          string     `json:"stageName,omitempty"`
	DeptCode           string     `json:"deptCode,omitempty"`
	DeptName           string     `json:"deptName,omitempty"`
	JobNumber          string     `json:"jobNumber,omitempty"`
	AssigneeName       string     `json:"assigneeName,omitempty"`
	Status             int        `json:"status"`
	StatusName         string     `json:"statusName"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	ActualStartTime    *time.Time `json:"actualStartTime,omitempty"`
	ActualCompleteTime *time.Time `json:"actualCompleteTime,omitempty"`
	RejectTime         *time.Time `json:"rejectTime,omitempty"`
	ApplyID            string     `json:"applyId,omitempty"`
}

// notGeneratedStatus is the pseudo-status spec §4.7 assigns a predecessor/
// successor that is present on the plan but has never materialized.
const notGeneratedStatus = -1

var statusNames = map[int]string{
	notGeneratedStatus: "not-generated",
	1:                  "pending-submit",
	2:                  "in-approval",
	3:                  "completed",
	4:                  "rejected",
}

func statusName(status int) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "unknown"
}

// CategoryBucket is one entry of a categorized count (by project, by
// department, or by status).
type CategoryBucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Categories groups a task list along the three axes spec §4.7 names.
type Categories struct {
	Total      int              `json:"total"`
	ByProject  []CategoryBucket `json:"byProject"`
	ByDept     []CategoryBucket `json:"byDept"`
	ByStatus   []CategoryBucket `json:"byStatus"`
}

// MyTasksView is the response for the "my tasks" endpoint.
type MyTasksView struct {
	Categories Categories       `json:"categories"`
	Rows       []TaskProjection `json:"rows"`
}

// HistoryTasksView is the paginated "history tasks" response.
type HistoryTasksView struct {
	Categories Categories       `json:"categories"`
	Total      int64            `json:"total"`
	PageNum    int              `json:"pageNum"`
	PageSize   int              `json:"pageSize"`
	Rows       []TaskProjection `json:"rows"`
}

// ApprovalNodeView is one node of an Application's ordered routing list with
// its computed status, joining ApprovalRule.approved_nodes/current_cursor
// against the node's ApprovalLogs.
type ApprovalNodeView struct {
	NodeIndex      int        `json:"nodeIndex"`
	OrgPositionID  int64      `json:"orgPositionId"`
	Status         string     `json:"status"` // approved | rejected | approving | pending
	Approver       string     `json:"approver,omitempty"`
	ApproverName   string     `json:"approverName,omitempty"`
	ApprovalTime   *time.Time `json:"approvalTime,omitempty"`
	Comment        string     `json:"comment,omitempty"`
}

// ApplicationView is one Application ever opened for a task, including its
// ordered per-node status.
type ApplicationView struct {
	ApplyID     string             `json:"applyId"`
	Status      int                `json:"status"`
	Nodes       []ApprovalNodeView `json:"nodes"`
	SubmitText  string             `json:"submitText,omitempty"`
	SubmitTime  *time.Time         `json:"submitTime,omitempty"`
}

// TaskDetailView is the response for the single-task detail endpoint.
type TaskDetailView struct {
	Task              TaskProjection    `json:"task"`
	CurrentApplication *ApplicationView `json:"currentApplication,omitempty"`
	History           []ApplicationView `json:"history"`
	PredecessorTasks  []TaskProjection  `json:"predecessorTasks"`
	SuccessorTasks    []TaskProjection  `json:"successorTasks"`
	CanSubmit         bool              `json:"canSubmit"`
	CanApprove        bool              `json:"canApprove"`
	CanResubmit       bool              `json:"canResubmit"`
}
