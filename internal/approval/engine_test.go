package approval

import (
	"context"
	"testing"
	"time"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/graph/graphtest"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-backend/internal/directory"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/materialize"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/snowflake"
)

const (
	posReviewer int64 = 100
	posManager  int64 = 200
	posVacant   int64 = 300
)

func newTestEngine(t *testing.T) (*Engine, graphrepo.TaskExecutionRepo, graphrepo.ApplicationRepo, *directory.InMemory, dbctx.Context) {
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

	materializer := materialize.NewEngine(db, stageRepo, taskRepo, stageExecRepo, taskExecRepo, log)

	dir := directory.NewInMemory()
	dir.AddEmployee(directory.Employee{JobNumber: "R001", OrgPositionID: posReviewer})
	dir.AddEmployee(directory.Employee{JobNumber: "M001", OrgPositionID: posManager})

	ids, err := snowflake.NewGenerator(1, 1)
	if err != nil {
		t.Fatalf("new snowflake generator: %v", err)
	}

	eng := NewEngine(appRepo, ruleRepo, logRepo, detailRepo, taskExecRepo, materializer, dir, ids, log)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: db}
	return eng, taskExecRepo, appRepo, dir, dbc
}

func seedInProgressTask(t *testing.T, taskExecRepo graphrepo.TaskExecutionRepo, dbc dbctx.Context, taskID int64, nodes []int64) *domain.TaskExecution {
	t.Helper()
	now := time.Now().UTC()
	te := &domain.TaskExecution{
		TaskID: taskID, ProjectID: 1, Name: "Review budget", JobNumber: "E001",
		Status: domain.TaskStatusInProgress, ActualStartTime: &now,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil),
		ApprovalNodes: domain.EncodeIDs(nodes),
	}
	if err := taskExecRepo.Insert(dbc, te); err != nil {
		t.Fatalf("seed task execution: %v", err)
	}
	return te
}

func TestSubmit_RoutesToFirstNodeAndMarksSubmitted(t *testing.T) {
	eng, taskExecRepo, appRepo, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, []int64{posReviewer, posManager})

	applyID, err := eng.Submit(dbc, te.TaskID, "E001", "please review", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if applyID == "" {
		t.Fatalf("expected a non-empty apply id")
	}
	app, err := appRepo.GetByID(dbc, applyID)
	if err != nil || app == nil {
		t.Fatalf("expected application to exist, err=%v app=%v", err, app)
	}
	if app.Status != domain.ApplyStatusInApproval {
		t.Fatalf("expected status in_approval, got %v", app.Status)
	}
	updated, err := taskExecRepo.GetByTaskID(dbc, te.TaskID)
	if err != nil || updated == nil {
		t.Fatalf("get task: %v", err)
	}
	if updated.Status != domain.TaskStatusSubmitted {
		t.Fatalf("expected task status submitted, got %v", updated.Status)
	}
}

func TestSubmit_EmptyApprovalNodesRejected(t *testing.T) {
	eng, taskExecRepo, _, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, nil)

	if _, err := eng.Submit(dbc, te.TaskID, "E001", "text", nil); err == nil {
		t.Fatalf("expected submit with empty approval_nodes to be rejected")
	}
}

func TestApprove_SingleNodeCompletesApplication(t *testing.T) {
	eng, taskExecRepo, appRepo, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, []int64{posReviewer})

	applyID, err := eng.Submit(dbc, te.TaskID, "E001", "text", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	completed, err := eng.Approve(dbc, applyID, "R001", "looks good")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !completed {
		t.Fatalf("expected single-node approval to complete the application")
	}
	app, err := appRepo.GetByID(dbc, applyID)
	if err != nil || app == nil {
		t.Fatalf("get app: %v", err)
	}
	if app.Status != domain.ApplyStatusCompleted {
		t.Fatalf("expected application completed, got %v", app.Status)
	}
	updated, err := taskExecRepo.GetByTaskID(dbc, te.TaskID)
	if err != nil || updated == nil {
		t.Fatalf("get task: %v", err)
	}
	if updated.Status != domain.TaskStatusCompleted {
		t.Fatalf("expected task status completed, got %v", updated.Status)
	}
}

func TestApprove_MultiNodeAdvancesWithoutCompleting(t *testing.T) {
	eng, taskExecRepo, appRepo, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, []int64{posReviewer, posManager})

	applyID, err := eng.Submit(dbc, te.TaskID, "E001", "text", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	completed, err := eng.Approve(dbc, applyID, "R001", "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if completed {
		t.Fatalf("expected a two-node approval chain to not complete after the first approval")
	}
	app, err := appRepo.GetByID(dbc, applyID)
	if err != nil || app == nil {
		t.Fatalf("get app: %v", err)
	}
	if app.Status != domain.ApplyStatusInApproval {
		t.Fatalf("expected application to remain in_approval, got %v", app.Status)
	}

	// Wrong approver (still the reviewer, not the manager) must be rejected.
	if _, err := eng.Approve(dbc, applyID, "R001", "again"); err == nil {
		t.Fatalf("expected approval from a non-cursor approver to be rejected")
	}

	completed, err = eng.Approve(dbc, applyID, "M001", "final sign-off")
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if !completed {
		t.Fatalf("expected the second (final) approval to complete the application")
	}
}

func TestApprove_AutoAdvancesThroughEmptyPosition(t *testing.T) {
	eng, taskExecRepo, appRepo, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, []int64{posReviewer, posVacant, posManager})

	applyID, err := eng.Submit(dbc, te.TaskID, "E001", "text", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	completed, err := eng.Approve(dbc, applyID, "R001", "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if completed {
		t.Fatalf("expected manager node to still be pending after auto-advance through the vacant position")
	}

	// The manager should now be the active cursor since posVacant has nobody.
	completed, err = eng.Approve(dbc, applyID, "M001", "done")
	if err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if !completed {
		t.Fatalf("expected final manager approval to complete the application")
	}
	app, err := appRepo.GetByID(dbc, applyID)
	if err != nil || app == nil {
		t.Fatalf("get app: %v", err)
	}
	if app.Status != domain.ApplyStatusCompleted {
		t.Fatalf("expected completed status, got %v", app.Status)
	}
}

func TestSubmit_AutoAdvancesImmediatelyWhenFirstNodeIsVacant(t *testing.T) {
	eng, taskExecRepo, appRepo, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, []int64{posVacant})

	applyID, err := eng.Submit(dbc, te.TaskID, "E001", "text", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	app, err := appRepo.GetByID(dbc, applyID)
	if err != nil || app == nil {
		t.Fatalf("get app: %v", err)
	}
	if app.Status != domain.ApplyStatusCompleted {
		t.Fatalf("expected a single vacant node to auto-advance straight to completed, got %v", app.Status)
	}
}

func TestReject_RequiresCommentAndMarksTaskRejected(t *testing.T) {
	eng, taskExecRepo, appRepo, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, []int64{posReviewer})

	applyID, err := eng.Submit(dbc, te.TaskID, "E001", "text", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := eng.Reject(dbc, applyID, "R001", ""); err == nil {
		t.Fatalf("expected reject without a comment to be rejected")
	}

	if err := eng.Reject(dbc, applyID, "R001", "missing receipts"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	app, err := appRepo.GetByID(dbc, applyID)
	if err != nil || app == nil {
		t.Fatalf("get app: %v", err)
	}
	if app.Status != domain.ApplyStatusRejected {
		t.Fatalf("expected application status rejected, got %v", app.Status)
	}
	updated, err := taskExecRepo.GetByTaskID(dbc, te.TaskID)
	if err != nil || updated == nil {
		t.Fatalf("get task: %v", err)
	}
	if updated.Status != domain.TaskStatusRejected {
		t.Fatalf("expected task status rejected, got %v", updated.Status)
	}
}

func TestResubmit_ResetsRejectedTaskToInProgress(t *testing.T) {
	eng, taskExecRepo, _, _, dbc := newTestEngine(t)
	te := seedInProgressTask(t, taskExecRepo, dbc, 1, []int64{posReviewer})

	applyID, err := eng.Submit(dbc, te.TaskID, "E001", "text", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := eng.Reject(dbc, applyID, "R001", "no good"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if err := eng.Resubmit(dbc, te.TaskID, "someone-else"); err == nil {
		t.Fatalf("expected resubmit by a non-owner to be rejected")
	}

	if err := eng.Resubmit(dbc, te.TaskID, "E001"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	updated, err := taskExecRepo.GetByTaskID(dbc, te.TaskID)
	if err != nil || updated == nil {
		t.Fatalf("get task: %v", err)
	}
	if updated.Status != domain.TaskStatusInProgress {
		t.Fatalf("expected task status in_progress after resubmit, got %v", updated.Status)
	}

	// Resubmitting an already in-progress task (not rejected) must fail.
	if err := eng.Resubmit(dbc, te.TaskID, "E001"); err == nil {
		t.Fatalf("expected resubmit of a non-rejected task to be rejected")
	}
}
