package projectview

import (
	"context"
	"testing"
	"time"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/graph/graphtest"
	"github.com/yungbote/neurobridge-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
)

type testFixture struct {
	svc           *Service
	stageRepo     graphrepo.StageRepo
	taskRepo      graphrepo.TaskRepo
	stageExecRepo graphrepo.StageExecutionRepo
	taskExecRepo  graphrepo.TaskExecutionRepo
	dbc           dbctx.Context
}

func newFixture(t *testing.T) testFixture {
	t.Helper()
	db := graphtest.DB(t)
	log := testutil.Logger(t)
	stageRepo := graphrepo.NewStageRepo(db, log)
	taskRepo := graphrepo.NewTaskRepo(db, log)
	stageExecRepo := graphrepo.NewStageExecutionRepo(db, log)
	taskExecRepo := graphrepo.NewTaskExecutionRepo(db, log)
	svc := NewService(stageRepo, taskRepo, stageExecRepo, taskExecRepo)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: db}
	return testFixture{svc: svc, stageRepo: stageRepo, taskRepo: taskRepo, stageExecRepo: stageExecRepo, taskExecRepo: taskExecRepo, dbc: dbc}
}

func day(n int) *time.Time {
	d := time.Date(2026, 1, 1+n, 0, 0, 0, 0, time.UTC)
	return &d
}

func dur(n int) *int { return &n }

func TestList_DisabledOnlyProjectIsExcluded(t *testing.T) {
	f := newFixture(t)
	// A soft-disabled stage never surfaces through ListAllEnabled, so a
	// project consisting only of disabled rows never appears in the summary
	// list at all (the unconfigured bucket is for projects with rows but no
	// plan content, not ones absent from the enabled sets entirely).
	st := &domain.Stage{ProjectID: 1, Name: "Design", Enable: false,
		PredecessorStages: domain.EncodeIDs(nil), SuccessorStages: domain.EncodeIDs(nil)}
	if err := f.stageRepo.Insert(f.dbc, st); err != nil {
		t.Fatalf("insert disabled stage: %v", err)
	}

	list, err := f.svc.List(f.dbc.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, s := range list {
		if s.ProjectID == 1 {
			t.Fatalf("expected a project with only disabled stages to be excluded, found %+v", s)
		}
	}
}

func TestList_WellFormedProjectIsNormal(t *testing.T) {
	f := newFixture(t)
	st := &domain.Stage{ProjectID: 1, Name: "Design", StartDate: day(0), EndDate: day(5), DurationDays: dur(5), Enable: true,
		PredecessorStages: domain.EncodeIDs(nil), SuccessorStages: domain.EncodeIDs(nil)}
	if err := f.stageRepo.Insert(f.dbc, st); err != nil {
		t.Fatalf("insert stage: %v", err)
	}
	ta := &domain.Task{ProjectID: 1, Name: "Draft", StageID: &st.ID, JobNumber: "E001",
		StartDate: day(0), EndDate: day(1), ApprovalType: domain.ApprovalTypeNone, Enable: true,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, ta); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	list, err := f.svc.List(f.dbc.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := findSummary(t, list, 1)
	if sum.ProjectStatus != StatusNormal {
		t.Fatalf("expected a fully-specified project to be normal, got %v (missing=%d timeRel=%d unassigned=%d)",
			sum.ProjectStatus, sum.MissingInfoCount, sum.TimeRelationErrorCount, sum.UnassignedStageCount)
	}
	if sum.StageCount != 1 || sum.TaskCount != 1 {
		t.Fatalf("expected 1 stage and 1 task, got stages=%d tasks=%d", sum.StageCount, sum.TaskCount)
	}
	if sum.TasksGenerated {
		t.Fatalf("expected TasksGenerated false before any materialization")
	}
}

func TestList_TaskMissingJobNumberIsAbnormal(t *testing.T) {
	f := newFixture(t)
	ta := &domain.Task{ProjectID: 1, Name: "Draft", JobNumber: "",
		StartDate: day(0), EndDate: day(1), ApprovalType: domain.ApprovalTypeNone, Enable: true,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, ta); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	list, err := f.svc.List(f.dbc.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := findSummary(t, list, 1)
	if sum.ProjectStatus != StatusAbnormal {
		t.Fatalf("expected a task with no job_number to mark the project abnormal, got %v", sum.ProjectStatus)
	}
	if sum.MissingInfoCount != 1 {
		t.Fatalf("expected missing info count 1, got %d", sum.MissingInfoCount)
	}
}

func TestList_TaskMissingApprovalNodesIsAbnormal(t *testing.T) {
	f := newFixture(t)
	ta := &domain.Task{ProjectID: 1, Name: "Approve budget", JobNumber: "E001",
		StartDate: day(0), EndDate: day(1), ApprovalType: domain.ApprovalTypeSpecified, Enable: true,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, ta); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	list, err := f.svc.List(f.dbc.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := findSummary(t, list, 1)
	if sum.MissingInfoCount != 1 {
		t.Fatalf("expected an approval-required task with no approval_nodes to count as missing info, got %d", sum.MissingInfoCount)
	}
}

func TestList_UnassignedStageCounted(t *testing.T) {
	f := newFixture(t)
	ta := &domain.Task{ProjectID: 1, Name: "Draft", JobNumber: "E001", StageID: nil,
		StartDate: day(0), EndDate: day(1), ApprovalType: domain.ApprovalTypeNone, Enable: true,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, ta); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	list, err := f.svc.List(f.dbc.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := findSummary(t, list, 1)
	if sum.UnassignedStageCount != 1 {
		t.Fatalf("expected unassigned stage count 1, got %d", sum.UnassignedStageCount)
	}
	if sum.ProjectStatus != StatusNormal {
		t.Fatalf("expected an otherwise complete unassigned task to leave the project normal, got %v", sum.ProjectStatus)
	}
}

func TestList_OverlappingPredecessorIsAbnormal(t *testing.T) {
	f := newFixture(t)
	// t1 -> t2 in the same stage, but t1 doesn't finish before t2 starts: the
	// validator's time-relation check must flag this as a warning, which the
	// summary folds into TimeRelationErrorCount and an abnormal status.
	st := &domain.Stage{ProjectID: 1, Name: "Build", StartDate: day(0), EndDate: day(10), DurationDays: dur(10), Enable: true,
		PredecessorStages: domain.EncodeIDs(nil), SuccessorStages: domain.EncodeIDs(nil)}
	if err := f.stageRepo.Insert(f.dbc, st); err != nil {
		t.Fatalf("insert stage: %v", err)
	}
	t1 := &domain.Task{ProjectID: 1, Name: "First", StageID: &st.ID, JobNumber: "E001",
		StartDate: day(0), EndDate: day(5), ApprovalType: domain.ApprovalTypeNone, Enable: true,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, t1); err != nil {
		t.Fatalf("insert t1: %v", err)
	}
	t2 := &domain.Task{ProjectID: 1, Name: "Second", StageID: &st.ID, JobNumber: "E001",
		StartDate: day(3), EndDate: day(8), ApprovalType: domain.ApprovalTypeNone, Enable: true,
		PredecessorTasks: domain.EncodeIDs([]int64{t1.ID}), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, t2); err != nil {
		t.Fatalf("insert t2: %v", err)
	}
	if _, err := f.taskRepo.UpdateEdges(f.dbc, t1.ID, nil, []int64{t2.ID}); err != nil {
		t.Fatalf("wire t1 successor: %v", err)
	}

	list, err := f.svc.List(f.dbc.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := findSummary(t, list, 1)
	if sum.TimeRelationErrorCount == 0 {
		t.Fatalf("expected the overlapping predecessor/successor pair to produce a time-relation warning")
	}
	if sum.ProjectStatus != StatusAbnormal {
		t.Fatalf("expected an overlapping predecessor to mark the project abnormal, got %v", sum.ProjectStatus)
	}
}

func TestList_TasksGeneratedReflectsMaterialization(t *testing.T) {
	f := newFixture(t)
	ta := &domain.Task{ProjectID: 1, Name: "Draft", JobNumber: "E001",
		StartDate: day(0), EndDate: day(1), ApprovalType: domain.ApprovalTypeNone, Enable: true,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, ta); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	now := time.Now().UTC()
	if err := f.taskExecRepo.Insert(f.dbc, &domain.TaskExecution{
		TaskID: ta.ID, ProjectID: 1, Name: ta.Name, JobNumber: "E001",
		Status: domain.TaskStatusInProgress, ActualStartTime: &now,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil),
	}); err != nil {
		t.Fatalf("materialize task: %v", err)
	}

	list, err := f.svc.List(f.dbc.Ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := findSummary(t, list, 1)
	if !sum.TasksGenerated {
		t.Fatalf("expected TasksGenerated true once a task execution exists")
	}
}

func TestDetail_IsEditableFalseOnceMaterialized(t *testing.T) {
	f := newFixture(t)
	st := &domain.Stage{ProjectID: 1, Name: "Design", StartDate: day(0), EndDate: day(5), DurationDays: dur(5), Enable: true,
		PredecessorStages: domain.EncodeIDs(nil), SuccessorStages: domain.EncodeIDs(nil)}
	if err := f.stageRepo.Insert(f.dbc, st); err != nil {
		t.Fatalf("insert stage: %v", err)
	}
	ta := &domain.Task{ProjectID: 1, Name: "Draft", StageID: &st.ID, JobNumber: "E001",
		StartDate: day(0), EndDate: day(1), ApprovalType: domain.ApprovalTypeNone, Enable: true,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil)}
	if err := f.taskRepo.Insert(f.dbc, ta); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	detail, err := f.svc.Detail(f.dbc.Ctx, 1)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Stages) != 1 || !detail.Stages[0].IsEditable {
		t.Fatalf("expected the unmaterialized stage to be editable, got %+v", detail.Stages)
	}
	if len(detail.Tasks) != 1 || !detail.Tasks[0].IsEditable {
		t.Fatalf("expected the unmaterialized task to be editable, got %+v", detail.Tasks)
	}
	if detail.TasksGenerated {
		t.Fatalf("expected TasksGenerated false before materialization")
	}

	now := time.Now().UTC()
	if err := f.taskExecRepo.Insert(f.dbc, &domain.TaskExecution{
		TaskID: ta.ID, ProjectID: 1, Name: ta.Name, JobNumber: "E001",
		Status: domain.TaskStatusInProgress, ActualStartTime: &now,
		PredecessorTasks: domain.EncodeIDs(nil), SuccessorTasks: domain.EncodeIDs(nil), ApprovalNodes: domain.EncodeIDs(nil),
	}); err != nil {
		t.Fatalf("materialize task: %v", err)
	}

	detail, err = f.svc.Detail(f.dbc.Ctx, 1)
	if err != nil {
		t.Fatalf("detail after materialize: %v", err)
	}
	if detail.Tasks[0].IsEditable {
		t.Fatalf("expected the materialized task to no longer be editable")
	}
	if !detail.TasksGenerated {
		t.Fatalf("expected TasksGenerated true once a task has materialized")
	}
	if detail.Stages[0].IsEditable != true {
		t.Fatalf("expected the stage itself to remain editable since it has no stage execution yet")
	}
}

func findSummary(t *testing.T, list []Summary, projectID int64) Summary {
	t.Helper()
	for _, s := range list {
		if s.ProjectID == projectID {
			return s
		}
	}
	t.Fatalf("expected project %d in the list, got %+v", projectID, list)
	return Summary{}
}
