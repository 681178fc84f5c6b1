package reconcile

import (
	"context"
	"testing"
	"time"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/graph/graphtest"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/materialize"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/validator"
)

func newTestReconciler(t *testing.T) (*Reconciler, graphrepo.StageExecutionRepo, graphrepo.TaskExecutionRepo) {
	t.Helper()
	db := graphtest.DB(t)
	log := testutil.Logger(t)
	stageRepo := graphrepo.NewStageRepo(db, log)
	taskRepo := graphrepo.NewTaskRepo(db, log)
	stageExecRepo := graphrepo.NewStageExecutionRepo(db, log)
	taskExecRepo := graphrepo.NewTaskExecutionRepo(db, log)
	engine := materialize.NewEngine(db, stageRepo, taskRepo, stageExecRepo, taskExecRepo, log)
	r := NewReconciler(db, stageRepo, taskRepo, stageExecRepo, taskExecRepo, engine, log)
	return r, stageExecRepo, taskExecRepo
}

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }

func TestSave_InsertsNewStagesAndTasksWithTempIDs(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	payload := validator.TaskConfigPayload{
		ProjectID: 1,
		Stages: []validator.StagePayload{
			{ID: -1, Name: "Design", StartTime: strp("2026-01-01"), EndTime: strp("2026-01-05"), ProjectID: 1},
		},
		Tasks: []validator.TaskPayload{
			{ID: -1, Name: "Draft", JobNumber: "E001", StageID: int64p(-1),
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
		},
	}

	result, err := r.Save(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	realStageID, ok := result.StageIDMap[-1]
	if !ok || realStageID <= 0 {
		t.Fatalf("expected temp stage -1 mapped to a real id, got %+v", result.StageIDMap)
	}
	realTaskID, ok := result.TaskIDMap[-1]
	if !ok || realTaskID <= 0 {
		t.Fatalf("expected temp task -1 mapped to a real id, got %+v", result.TaskIDMap)
	}
}

func TestSave_ResolvesTaskStageIDThroughTempMap(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	payload := validator.TaskConfigPayload{
		ProjectID: 1,
		Stages: []validator.StagePayload{
			{ID: -1, Name: "Design", StartTime: strp("2026-01-01"), EndTime: strp("2026-01-05"), ProjectID: 1},
		},
		Tasks: []validator.TaskPayload{
			{ID: -1, Name: "Draft", JobNumber: "E001", StageID: int64p(-1),
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
		},
	}
	result, err := r.Save(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings when temp stage_id resolves, got %v", result.Warnings)
	}
}

func TestSave_UnresolvedTempStageIDWarnsAndNullsStageID(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	payload := validator.TaskConfigPayload{
		ProjectID: 1,
		Tasks: []validator.TaskPayload{
			{ID: -1, Name: "Orphan task", JobNumber: "E001", StageID: int64p(-99),
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
		},
	}
	result, err := r.Save(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected exactly one warning about the unresolved temp stage_id, got %v", result.Warnings)
	}
}

func TestSave_DeletingAMaterializedStageIsRejected(t *testing.T) {
	r, stageExecRepo, _ := newTestReconciler(t)

	payload := validator.TaskConfigPayload{
		ProjectID: 1,
		Stages: []validator.StagePayload{
			{ID: -1, Name: "Design", StartTime: strp("2026-01-01"), EndTime: strp("2026-01-05"), ProjectID: 1},
		},
	}
	result, err := r.Save(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("save 1: %v", err)
	}
	realStageID := result.StageIDMap[-1]

	now := time.Now().UTC()
	dbc := dbctx.Context{Ctx: context.Background()}
	if err := stageExecRepo.Insert(dbc, &domain.StageExecution{
		StageID: realStageID, ProjectID: 1, Status: domain.StageStatusInProgress, ActualStartTime: &now,
		PredecessorStages: domain.EncodeIDs(nil), SuccessorStages: domain.EncodeIDs(nil),
	}); err != nil {
		t.Fatalf("materialize stage: %v", err)
	}

	// Resubmit the same project config but omit the now-materialized stage.
	emptyPayload := validator.TaskConfigPayload{ProjectID: 1}
	if _, err := r.Save(context.Background(), emptyPayload, false); err == nil {
		t.Fatalf("expected deleting a materialized stage to be rejected")
	}
}

func TestSave_EditGuardRejectsFrozenFieldChangeOnMaterializedTask(t *testing.T) {
	r, _, taskExecRepo := newTestReconciler(t)

	payload := validator.TaskConfigPayload{
		ProjectID: 1,
		Tasks: []validator.TaskPayload{
			{ID: -1, Name: "Draft", JobNumber: "E001",
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
		},
	}
	result, err := r.Save(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("save 1: %v", err)
	}
	realTaskID := result.TaskIDMap[-1]

	now := time.Now().UTC()
	dbc := dbctx.Context{Ctx: context.Background()}
	if err := taskExecRepo.Insert(dbc, &domain.TaskExecution{
		TaskID: realTaskID, ProjectID: 1, Name: "Draft", JobNumber: "E001",
		StartDate: parseDate(strp("2026-01-01")), EndDate: parseDate(strp("2026-01-02")),
		Status: domain.TaskStatusInProgress, ActualStartTime: &now,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil),
	}); err != nil {
		t.Fatalf("materialize task: %v", err)
	}

	renamed := validator.TaskConfigPayload{
		ProjectID: 1,
		Tasks: []validator.TaskPayload{
			{ID: realTaskID, Name: "Renamed", JobNumber: "E001",
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
		},
	}
	if _, err := r.Save(context.Background(), renamed, false); err == nil {
		t.Fatalf("expected renaming a materialized task to be rejected by the edit guard")
	}
}

func TestSave_EditGuardAllowsAppendingUnmaterializedSuccessor(t *testing.T) {
	r, _, taskExecRepo := newTestReconciler(t)

	seed := validator.TaskConfigPayload{
		ProjectID: 1,
		Tasks: []validator.TaskPayload{
			{ID: -1, Name: "Draft", JobNumber: "E001",
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
			{ID: -2, Name: "Review", JobNumber: "E002",
				StartTime: strp("2026-01-03"), EndTime: strp("2026-01-04"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
		},
	}
	result, err := r.Save(context.Background(), seed, false)
	if err != nil {
		t.Fatalf("save 1: %v", err)
	}
	t1 := result.TaskIDMap[-1]
	t2 := result.TaskIDMap[-2]

	now := time.Now().UTC()
	dbc := dbctx.Context{Ctx: context.Background()}
	if err := taskExecRepo.Insert(dbc, &domain.TaskExecution{
		TaskID: t1, ProjectID: 1, Name: "Draft", JobNumber: "E001",
		StartDate: parseDate(strp("2026-01-01")), EndDate: parseDate(strp("2026-01-02")),
		Status: domain.TaskStatusInProgress, ActualStartTime: &now,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil),
	}); err != nil {
		t.Fatalf("materialize t1: %v", err)
	}

	withSuccessor := validator.TaskConfigPayload{
		ProjectID: 1,
		Tasks: []validator.TaskPayload{
			{ID: t1, Name: "Draft", JobNumber: "E001",
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1,
				SuccessorTasks: []int64{t2}},
			{ID: t2, Name: "Review", JobNumber: "E002",
				StartTime: strp("2026-01-03"), EndTime: strp("2026-01-04"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1,
				PredecessorTasks: []int64{t1}},
		},
	}
	if _, err := r.Save(context.Background(), withSuccessor, false); err != nil {
		t.Fatalf("expected appending an unmaterialized successor to be allowed: %v", err)
	}
}

func TestSave_GenerateOnSaveTriggersCascadeInSameTransaction(t *testing.T) {
	r, stageExecRepo, taskExecRepo := newTestReconciler(t)

	payload := validator.TaskConfigPayload{
		ProjectID: 1,
		Stages: []validator.StagePayload{
			{ID: -1, Name: "Design", StartTime: strp("2026-01-01"), EndTime: strp("2026-01-05"), ProjectID: 1},
		},
		Tasks: []validator.TaskPayload{
			{ID: -1, Name: "Draft", JobNumber: "E001", StageID: int64p(-1),
				StartTime: strp("2026-01-01"), EndTime: strp("2026-01-02"),
				ApprovalType: validator.ApprovalTypeNone, ProjectID: 1},
		},
	}
	result, err := r.Save(context.Background(), payload, true)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	realStageID := result.StageIDMap[-1]
	realTaskID := result.TaskIDMap[-1]

	dbc := dbctx.Context{Ctx: context.Background()}
	se, err := stageExecRepo.GetByStageID(dbc, realStageID)
	if err != nil || se == nil {
		t.Fatalf("expected generateOnSave to materialize the stage, err=%v se=%v", err, se)
	}
	te, err := taskExecRepo.GetByTaskID(dbc, realTaskID)
	if err != nil || te == nil {
		t.Fatalf("expected generateOnSave to materialize the task, err=%v te=%v", err, te)
	}
}

func int64p(n int64) *int64 { return &n }
