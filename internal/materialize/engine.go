// Package materialize implements the Materialization Engine (spec §4.5): a
// fixed-point cascade sweep that turns plan Stages/Tasks into StageExecution/
// TaskExecution rows as their preconditions become satisfied.
package materialize

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/observability"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

var tracer = otel.Tracer("neurobridge/materialize")

type Engine struct {
	db            *gorm.DB
	stageRepo     graphrepo.StageRepo
	taskRepo      graphrepo.TaskRepo
	stageExecRepo graphrepo.StageExecutionRepo
	taskExecRepo  graphrepo.TaskExecutionRepo
	sf            singleflight.Group
	log           *logger.Logger
	metrics       *observability.Metrics
}

// WithMetrics attaches the domain metrics surface (cascade depth/duration,
// Graph Store lock wait). A nil receiver or nil argument is a safe no-op.
func (e *Engine) WithMetrics(m *observability.Metrics) *Engine {
	if e == nil {
		return e
	}
	e.metrics = m
	return e
}

func NewEngine(
	db *gorm.DB,
	stageRepo graphrepo.StageRepo,
	taskRepo graphrepo.TaskRepo,
	stageExecRepo graphrepo.StageExecutionRepo,
	taskExecRepo graphrepo.TaskExecutionRepo,
	baseLog *logger.Logger,
) *Engine {
	return &Engine{
		db:            db,
		stageRepo:     stageRepo,
		taskRepo:      taskRepo,
		stageExecRepo: stageExecRepo,
		taskExecRepo:  taskExecRepo,
		log:           baseLog.With("component", "MaterializationEngine"),
	}
}

// Cascade runs the §4.5.3 fixed-point sweep for a project. When called with
// an already-open transaction (dbc.Tx set, the common case — every trigger
// in this system fires from inside its own transaction) it runs directly.
// When called without one it dedupes concurrent callers for the same
// project via singleflight and opens its own transaction, so two unrelated
// triggers landing on the same project in the same instant collapse into a
// single sweep instead of two redundant ones.
func (e *Engine) Cascade(dbc dbctx.Context, projectID int64) error {
	ctx, span := tracer.Start(dbc.Ctx, "materialize.cascade", trace.WithAttributes(attribute.Int64("project_id", projectID)))
	defer span.End()
	dbc.Ctx = ctx

	start := time.Now()
	var iterations int
	var err error
	if dbc.Tx != nil {
		iterations, err = e.cascadeLocked(dbc, projectID)
	} else {
		_, err, _ = e.sf.Do(fmt.Sprintf("cascade:%d", projectID), func() (interface{}, error) {
			txErr := e.db.Transaction(func(tx *gorm.DB) error {
				var innerErr error
				iterations, innerErr = e.cascadeLocked(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, projectID)
				return innerErr
			})
			return nil, txErr
		})
	}
	e.metrics.ObserveCascade(iterations, time.Since(start))
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (e *Engine) cascadeLocked(dbc dbctx.Context, projectID int64) (int, error) {
	lockStart := time.Now()
	stages, err := e.stageRepo.LoadProjectPlanLocked(dbc, projectID)
	if err != nil {
		return 0, err
	}
	e.metrics.ObserveLockWait("stage", "load_project_plan_locked", time.Since(lockStart))

	lockStart = time.Now()
	tasks, err := e.taskRepo.LoadProjectPlanLocked(dbc, projectID)
	if err != nil {
		return 0, err
	}
	e.metrics.ObserveLockWait("task", "load_project_plan_locked", time.Since(lockStart))
	stagesByID := make(map[int64]domain.Stage, len(stages))
	for _, s := range stages {
		stagesByID[s.ID] = s
	}
	tasksByID := make(map[int64]domain.Task, len(tasks))
	for _, t := range tasks {
		tasksByID[t.ID] = t
	}

	iterations := 0
	for {
		iterations++
		progress := false

		for _, s := range stages {
			if !s.Enable {
				continue
			}
			exists, err := e.stageExecRepo.Exists(dbc, s.ID)
			if err != nil {
				return 0, err
			}
			if exists {
				continue
			}
			ready, err := e.stagePreconditionsMet(dbc, s, stagesByID)
			if err != nil {
				return 0, err
			}
			if !ready {
				continue
			}
			now := currentTime()
			se := &domain.StageExecution{
				StageID:           s.ID,
				ProjectID:         s.ProjectID,
				Status:            domain.StageStatusInProgress,
				PredecessorStages: domain.EncodeIDs(domain.DecodeIDs(s.PredecessorStages)),
				SuccessorStages:   domain.EncodeIDs(domain.DecodeIDs(s.SuccessorStages)),
				ActualStartTime:   &now,
			}
			if err := e.stageExecRepo.Insert(dbc, se); err != nil {
				return 0, err
			}
			progress = true

			for _, t := range tasks {
				if !t.Enable || t.StageID == nil || *t.StageID != s.ID {
					continue
				}
				if len(domain.DecodeIDs(t.PredecessorTasks)) != 0 {
					continue
				}
				texists, err := e.taskExecRepo.Exists(dbc, t.ID)
				if err != nil {
					return 0, err
				}
				if texists {
					continue
				}
				if reason := completenessReason(t, tasksByID); reason != "" {
					continue
				}
				conflict, err := e.stageEnvelopeConflict(dbc, t, stagesByID)
				if err != nil {
					return 0, err
				}
				if conflict {
					continue
				}
				if err := e.insertTaskExecution(dbc, t); err != nil {
					return 0, err
				}
			}
		}

		for _, t := range tasks {
			if !t.Enable {
				continue
			}
			texists, err := e.taskExecRepo.Exists(dbc, t.ID)
			if err != nil {
				return 0, err
			}
			if texists {
				continue
			}
			if t.StageID == nil {
				continue
			}
			stageExists, err := e.stageExecRepo.Exists(dbc, *t.StageID)
			if err != nil {
				return 0, err
			}
			if !stageExists {
				continue
			}
			predsReady, err := e.taskPredsCompleted(dbc, t)
			if err != nil {
				return 0, err
			}
			if !predsReady {
				continue
			}
			if reason := completenessReason(t, tasksByID); reason != "" {
				continue
			}
			conflict, err := e.stageEnvelopeConflict(dbc, t, stagesByID)
			if err != nil {
				return 0, err
			}
			if conflict {
				continue
			}
			if err := e.insertTaskExecution(dbc, t); err != nil {
				return 0, err
			}
			progress = true
		}

		if !progress {
			break
		}
	}
	return iterations, nil
}

func (e *Engine) insertTaskExecution(dbc dbctx.Context, t domain.Task) error {
	now := currentTime()
	te := &domain.TaskExecution{
		TaskID:           t.ID,
		ProjectID:        t.ProjectID,
		StageID:          t.StageID,
		Name:             t.Name,
		Description:      t.Description,
		StartDate:        t.StartDate,
		EndDate:          t.EndDate,
		Duration:         t.Duration,
		JobNumber:        t.JobNumber,
		PredecessorTasks: domain.EncodeIDs(domain.DecodeIDs(t.PredecessorTasks)),
		SuccessorTasks:   domain.EncodeIDs(domain.DecodeIDs(t.SuccessorTasks)),
		ApprovalNodes:    domain.EncodeIDs(domain.DecodeIDs(t.ApprovalNodes)),
		Status:           domain.TaskStatusInProgress,
		ActualStartTime:  &now,
	}
	return e.taskExecRepo.Insert(dbc, te)
}

// stagePreconditionsMet implements spec §4.5 ("Preconditions for generating
// a StageExecution for stage S"): every predecessor stage must be either
// completed (status=2) or no longer live (soft-deleted).
func (e *Engine) stagePreconditionsMet(dbc dbctx.Context, s domain.Stage, stagesByID map[int64]domain.Stage) (bool, error) {
	for _, predID := range domain.DecodeIDs(s.PredecessorStages) {
		predStage, ok := stagesByID[predID]
		if !ok || !predStage.Enable {
			continue
		}
		predExec, err := e.stageExecRepo.GetByStageID(dbc, predID)
		if err != nil {
			return false, err
		}
		if predExec == nil || predExec.Status != domain.StageStatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

// taskPredsCompleted implements the task precondition "every task in
// pred(T) has execution status=3".
func (e *Engine) taskPredsCompleted(dbc dbctx.Context, t domain.Task) (bool, error) {
	for _, predID := range domain.DecodeIDs(t.PredecessorTasks) {
		predExec, err := e.taskExecRepo.GetByTaskID(dbc, predID)
		if err != nil {
			return false, err
		}
		if predExec == nil || predExec.Status != domain.TaskStatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

// stageEnvelopeConflict implements §4.5.2: refuses generation if a
// neighboring stage is itself already materialized with a committed
// schedule that has advanced past this task's stage's plan dates. A
// neighbor that is still unmaterialized cannot conflict yet — its plan
// dates are provisional until it actually generates.
func (e *Engine) stageEnvelopeConflict(dbc dbctx.Context, t domain.Task, stagesByID map[int64]domain.Stage) (bool, error) {
	if t.StageID == nil {
		return false, nil
	}
	s, ok := stagesByID[*t.StageID]
	if !ok || s.StartDate == nil || s.EndDate == nil {
		return false, nil
	}
	for _, predID := range domain.DecodeIDs(s.PredecessorStages) {
		pred, ok := stagesByID[predID]
		if !ok || pred.EndDate == nil {
			continue
		}
		predExec, err := e.stageExecRepo.GetByStageID(dbc, predID)
		if err != nil {
			return false, err
		}
		if predExec == nil {
			continue
		}
		if !pred.EndDate.Before(*s.StartDate) {
			return true, nil
		}
	}
	for _, succID := range domain.DecodeIDs(s.SuccessorStages) {
		succ, ok := stagesByID[succID]
		if !ok || succ.StartDate == nil {
			continue
		}
		succExec, err := e.stageExecRepo.GetByStageID(dbc, succID)
		if err != nil {
			return false, err
		}
		if succExec == nil {
			continue
		}
		if !succ.StartDate.After(*s.EndDate) {
			return true, nil
		}
	}
	return false, nil
}

// completenessReason implements §4.5.1. An empty return means the task is
// generation-eligible. Unlike the Validator's non-fatal time-order warning,
// a cross-edge time contradiction here blocks generation outright.
func completenessReason(t domain.Task, tasksByID map[int64]domain.Task) string {
	if t.JobNumber == "" {
		return "job_number not set"
	}
	if t.StartDate == nil || t.EndDate == nil {
		return "start_date/end_date not set"
	}
	if t.StartDate.After(*t.EndDate) {
		return "start_date after end_date"
	}
	if t.ApprovalType == domain.ApprovalTypeSpecified || t.ApprovalType == domain.ApprovalTypeSequential {
		if len(domain.DecodeIDs(t.ApprovalNodes)) == 0 {
			return "approval_nodes empty for approval_type requiring nodes"
		}
	}
	if t.StageID == nil {
		return "stage_id not set"
	}
	for _, predID := range domain.DecodeIDs(t.PredecessorTasks) {
		pred, ok := tasksByID[predID]
		if !ok || pred.EndDate == nil {
			continue
		}
		if !pred.EndDate.Before(*t.StartDate) {
			return "predecessor task end_date does not precede start_date"
		}
	}
	for _, succID := range domain.DecodeIDs(t.SuccessorTasks) {
		succ, ok := tasksByID[succID]
		if !ok || succ.StartDate == nil {
			continue
		}
		if !succ.StartDate.After(*t.EndDate) {
			return "successor task start_date does not follow end_date"
		}
	}
	return ""
}

func currentTime() time.Time {
	return time.Now().UTC()
}
