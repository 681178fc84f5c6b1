package query

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-backend/internal/approval"
	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/graph/graphtest"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-backend/internal/directory"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/materialize"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/snowflake"
)

const posReviewer int64 = 100

type testFixture struct {
	svc          *Service
	taskExecRepo graphrepo.TaskExecutionRepo
	approvalEng  *approval.Engine
	dbc          dbctx.Context
}

func newFixture(t *testing.T) testFixture {
	t.Helper()
	db := graphtest.DB(t)
	log := testutil.Logger(t)
	stageRepo := graphrepo.NewStageRepo(db, log)
	taskRepo := graphrepo.NewTaskRepo(db, log)
	stageExecRepo := graphrepo.NewStageExecutionRepo(db, log)
	taskExecRepo := graphrepo.NewTaskExecutionRepo(db, log)
	appRepo := graphrepo.NewApplicationRepo(db, log)
	ruleRepo := graphrepo.NewApprovalRuleRepo(db, log)
	logRepo := graphrepo.NewApprovalLogRepo(db, log)
	detailRepo := graphrepo.NewTaskApplyDetailRepo(db, log)

	dir := directory.NewInMemory()
	dir.AddEmployee(directory.Employee{JobNumber: "E001", Name: "Alice", OrgPositionID: 1, DepartmentCode: "ENG01"})
	dir.AddEmployee(directory.Employee{JobNumber: "R001", Name: "Bob", OrgPositionID: posReviewer, DepartmentCode: "ENG02"})
	dir.AddDepartment(directory.Department{Code: "ENG01", Name: "Engineering"})

	materializer := materialize.NewEngine(db, stageRepo, taskRepo, stageExecRepo, taskExecRepo, log)
	ids, err := snowflake.NewGenerator(1, 1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	approvalEng := approval.NewEngine(appRepo, ruleRepo, logRepo, detailRepo, taskExecRepo, materializer, dir, ids, log)

	svc := NewService(taskExecRepo, stageExecRepo, stageRepo, taskRepo, appRepo, ruleRepo, logRepo, detailRepo, dir, nil, log)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: db}
	return testFixture{svc: svc, taskExecRepo: taskExecRepo, approvalEng: approvalEng, dbc: dbc}
}

func seedTask(t *testing.T, f testFixture, taskID int64, jobNumber string, status domain.TaskStatus, nodes []int64) *domain.TaskExecution {
	t.Helper()
	now := time.Now().UTC()
	te := &domain.TaskExecution{
		TaskID: taskID, ProjectID: 1, Name: "Submit expense report", JobNumber: jobNumber,
		Status: status, ActualStartTime: &now,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil),
		ApprovalNodes: domain.EncodeIDs(nodes),
	}
	if err := f.taskExecRepo.Insert(f.dbc, te); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return te
}

func TestMyTasks_IncludesOwnedOpenTasksAndCategorizes(t *testing.T) {
	f := newFixture(t)
	seedTask(t, f, 1, "E001", domain.TaskStatusInProgress, nil)
	seedTask(t, f, 2, "E001", domain.TaskStatusCompleted, nil) // excluded: belongs to history

	view, err := f.svc.MyTasks(f.dbc.Ctx, "E001", 0)
	if err != nil {
		t.Fatalf("my tasks: %v", err)
	}
	if len(view.Rows) != 1 {
		t.Fatalf("expected exactly the in-progress task, got %d rows", len(view.Rows))
	}
	if view.Rows[0].DeptCode != "ENG01" || view.Rows[0].DeptName != "Engineering" {
		t.Fatalf("expected department enrichment, got code=%q name=%q", view.Rows[0].DeptCode, view.Rows[0].DeptName)
	}
	if view.Categories.Total != 1 {
		t.Fatalf("expected categories total 1, got %d", view.Categories.Total)
	}
}

func TestMyTasks_IncludesTasksRoutedThroughApproverPosition(t *testing.T) {
	f := newFixture(t)
	te := seedTask(t, f, 1, "E001", domain.TaskStatusInProgress, []int64{posReviewer})

	if _, err := f.approvalEng.Submit(f.dbc, te.TaskID, "E001", "please review", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	view, err := f.svc.MyTasks(f.dbc.Ctx, "someone-unrelated", posReviewer)
	if err != nil {
		t.Fatalf("my tasks for reviewer: %v", err)
	}
	if len(view.Rows) != 1 {
		t.Fatalf("expected the task routed through the reviewer's position to appear, got %d rows", len(view.Rows))
	}
	if view.Rows[0].TaskID != te.TaskID {
		t.Fatalf("expected task %d, got %d", te.TaskID, view.Rows[0].TaskID)
	}
}

func TestHistoryTasks_PaginatesCompletedTasksOnly(t *testing.T) {
	f := newFixture(t)
	for i := int64(1); i <= 3; i++ {
		seedTask(t, f, i, "E001", domain.TaskStatusCompleted, nil)
	}
	seedTask(t, f, 4, "E001", domain.TaskStatusInProgress, nil)

	view, err := f.svc.HistoryTasks(f.dbc.Ctx, "E001", 1, 2)
	if err != nil {
		t.Fatalf("history tasks: %v", err)
	}
	if view.Total != 3 {
		t.Fatalf("expected total 3 completed tasks, got %d", view.Total)
	}
	if len(view.Rows) != 2 {
		t.Fatalf("expected page size 2 to return 2 rows, got %d", len(view.Rows))
	}

	page2, err := f.svc.HistoryTasks(f.dbc.Ctx, "E001", 2, 2)
	if err != nil {
		t.Fatalf("history tasks page 2: %v", err)
	}
	if len(page2.Rows) != 1 {
		t.Fatalf("expected the remaining 1 row on page 2, got %d", len(page2.Rows))
	}
}

func TestTaskDetail_ReturnsNotGeneratedForUnmaterializedTask(t *testing.T) {
	f := newFixture(t)
	log := testutil.Logger(t)
	taskRepo := graphrepo.NewTaskRepo(f.dbc.Tx, log)
	task := &domain.Task{ProjectID: 1, Name: "Plan-only task", JobNumber: "E001",
		ApprovalType: domain.ApprovalTypeNone,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil),
		Enable: true}
	if err := taskRepo.Insert(f.dbc, task); err != nil {
		t.Fatalf("insert plan task: %v", err)
	}

	view, err := f.svc.TaskDetail(f.dbc.Ctx, task.ID, "E001")
	if err != nil {
		t.Fatalf("task detail: %v", err)
	}
	if view.Task.StatusName != "not-generated" {
		t.Fatalf("expected not-generated status for a never-materialized task, got %q", view.Task.StatusName)
	}
	if view.CanSubmit {
		t.Fatalf("expected CanSubmit false for a task with no execution")
	}
}

func TestTaskDetail_CanSubmitAndCurrentApplicationForOwner(t *testing.T) {
	f := newFixture(t)
	te := seedTask(t, f, 1, "E001", domain.TaskStatusInProgress, []int64{posReviewer})

	view, err := f.svc.TaskDetail(f.dbc.Ctx, te.TaskID, "E001")
	if err != nil {
		t.Fatalf("task detail: %v", err)
	}
	if !view.CanSubmit {
		t.Fatalf("expected the owner to be able to submit an in-progress task")
	}
	if view.CanApprove {
		t.Fatalf("expected CanApprove false before any submission exists")
	}

	if _, err := f.approvalEng.Submit(f.dbc, te.TaskID, "E001", "please review", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	view, err = f.svc.TaskDetail(f.dbc.Ctx, te.TaskID, "R001")
	if err != nil {
		t.Fatalf("task detail after submit: %v", err)
	}
	if !view.CanApprove {
		t.Fatalf("expected the reviewer holding the current cursor position to be able to approve")
	}
	if view.CurrentApplication == nil {
		t.Fatalf("expected a current application after submit")
	}
	if len(view.CurrentApplication.Nodes) != 1 || view.CurrentApplication.Nodes[0].Status != "approving" {
		t.Fatalf("expected the single node to be in approving status, got %+v", view.CurrentApplication.Nodes)
	}
}
