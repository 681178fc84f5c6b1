// Package reconcile implements the Identity Reconciler and Persistence
// component (spec §4.3): it takes a validated TaskConfigPayload and a
// project ID, row-locks the existing plan, reconciles temp IDs to real IDs
// across two passes, enforces the Edit Guard on materialized entities, and
// optionally hands off to the Materialization Engine within the same
// transaction.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/materialize"
	"github.com/yungbote/neurobridge-backend/internal/observability"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	platformerrors "github.com/yungbote/neurobridge-backend/internal/platform/errors"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
	"github.com/yungbote/neurobridge-backend/internal/validator"
)

var tracer = otel.Tracer("neurobridge/reconcile")

// Result reports the temp→real ID mappings produced by one Save call, for
// the caller to echo back to the client.
type Result struct {
	StageIDMap map[int64]int64
	TaskIDMap  map[int64]int64
	Warnings   []string
}

type Reconciler struct {
	db            *gorm.DB
	stageRepo     graphrepo.StageRepo
	taskRepo      graphrepo.TaskRepo
	stageExecRepo graphrepo.StageExecutionRepo
	taskExecRepo  graphrepo.TaskExecutionRepo
	guard         *Guard
	materializer  *materialize.Engine
	log           *logger.Logger
	metrics       *observability.Metrics
}

// WithMetrics attaches the domain metrics surface (Graph Store lock wait
// during the reconcile transaction's initial lock). A nil receiver or nil
// argument is a safe no-op.
func (r *Reconciler) WithMetrics(m *observability.Metrics) *Reconciler {
	if r == nil {
		return r
	}
	r.metrics = m
	return r
}

func NewReconciler(
	db *gorm.DB,
	stageRepo graphrepo.StageRepo,
	taskRepo graphrepo.TaskRepo,
	stageExecRepo graphrepo.StageExecutionRepo,
	taskExecRepo graphrepo.TaskExecutionRepo,
	materializer *materialize.Engine,
	baseLog *logger.Logger,
) *Reconciler {
	return &Reconciler{
		db:            db,
		stageRepo:     stageRepo,
		taskRepo:      taskRepo,
		stageExecRepo: stageExecRepo,
		taskExecRepo:  taskExecRepo,
		guard:         NewGuard(stageExecRepo, taskExecRepo),
		materializer:  materializer,
		log:           baseLog.With("component", "Reconciler"),
	}
}

// Save runs the full §4.3 procedure in one transaction: lock, Edit Guard,
// two-pass stage reconciliation, two-pass task reconciliation, and an
// optional generate-on-save hand-off to the Materialization Engine.
func (r *Reconciler) Save(ctx context.Context, payload validator.TaskConfigPayload, generateOnSave bool) (*Result, error) {
	ctx, span := tracer.Start(ctx, "reconcile.save", trace.WithAttributes(attribute.Int64("project_id", payload.ProjectID)))
	defer span.End()

	result := &Result{
		StageIDMap: map[int64]int64{},
		TaskIDMap:  map[int64]int64{},
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		lockStart := time.Now()
		existingStages, err := r.stageRepo.LoadProjectPlanLocked(dbc, payload.ProjectID)
		if err != nil {
			return err
		}
		r.metrics.ObserveLockWait("stage", "load_project_plan_locked", time.Since(lockStart))

		lockStart = time.Now()
		existingTasks, err := r.taskRepo.LoadProjectPlanLocked(dbc, payload.ProjectID)
		if err != nil {
			return err
		}
		r.metrics.ObserveLockWait("task", "load_project_plan_locked", time.Since(lockStart))
		stagesByID := make(map[int64]domain.Stage, len(existingStages))
		for _, s := range existingStages {
			stagesByID[s.ID] = s
		}
		tasksByID := make(map[int64]domain.Task, len(existingTasks))
		for _, t := range existingTasks {
			tasksByID[t.ID] = t
		}

		if err := r.editGuardPass(dbc, payload, stagesByID, tasksByID); err != nil {
			return err
		}

		if err := r.reconcileStagesPass1(dbc, payload, stagesByID, result); err != nil {
			return err
		}
		if err := r.reconcileStagesPass2(dbc, payload, result); err != nil {
			return err
		}
		if err := r.reconcileTasksPass1(dbc, payload, tasksByID, result); err != nil {
			return err
		}
		if err := r.reconcileTasksPass2(dbc, payload, result); err != nil {
			return err
		}

		if generateOnSave {
			if err := r.materializer.Cascade(dbc, payload.ProjectID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func (r *Reconciler) editGuardPass(dbc dbctx.Context, payload validator.TaskConfigPayload, stagesByID map[int64]domain.Stage, tasksByID map[int64]domain.Task) error {
	for _, sp := range payload.Stages {
		if sp.ID <= 0 {
			continue
		}
		existing, ok := stagesByID[sp.ID]
		if !ok {
			continue
		}
		materialized, err := r.stageExecRepo.Exists(dbc, sp.ID)
		if err != nil {
			return err
		}
		if materialized {
			if err := r.guard.CheckStage(dbc, existing, sp); err != nil {
				return err
			}
		}
	}
	for _, tp := range payload.Tasks {
		if tp.ID <= 0 {
			continue
		}
		existing, ok := tasksByID[tp.ID]
		if !ok {
			continue
		}
		materialized, err := r.taskExecRepo.Exists(dbc, tp.ID)
		if err != nil {
			return err
		}
		if materialized {
			if err := r.guard.CheckTask(dbc, existing, tp); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reconciler) reconcileStagesPass1(dbc dbctx.Context, payload validator.TaskConfigPayload, stagesByID map[int64]domain.Stage, result *Result) error {
	seen := map[int64]bool{}
	for _, sp := range payload.Stages {
		if sp.ID <= 0 {
			row := &domain.Stage{
				ProjectID:    payload.ProjectID,
				Name:         sp.Name,
				StartDate:    parseDate(sp.StartTime),
				EndDate:      parseDate(sp.EndTime),
				DurationDays: sp.Duration,
				LayoutBlob:   encodePosition(sp.Position),
			}
			if err := r.stageRepo.Insert(dbc, row); err != nil {
				return err
			}
			result.StageIDMap[sp.ID] = row.ID
			seen[row.ID] = true
			continue
		}
		existing, ok := stagesByID[sp.ID]
		if !ok {
			return fmt.Errorf("%w: stage %d not found in project %d", platformerrors.ErrInvalidArgument, sp.ID, payload.ProjectID)
		}
		existing.Name = sp.Name
		existing.StartDate = parseDate(sp.StartTime)
		existing.EndDate = parseDate(sp.EndTime)
		existing.DurationDays = sp.Duration
		existing.LayoutBlob = encodePosition(sp.Position)
		if err := r.stageRepo.UpdateScalarFields(dbc, &existing); err != nil {
			return err
		}
		seen[sp.ID] = true
	}
	for id, existing := range stagesByID {
		if seen[id] || !existing.Enable {
			continue
		}
		materialized, err := r.stageExecRepo.Exists(dbc, id)
		if err != nil {
			return err
		}
		if materialized {
			return fmt.Errorf("%w: stage %d already generated, cannot delete", platformerrors.ErrConflict, id)
		}
		if err := r.stageRepo.SoftDelete(dbc, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) reconcileStagesPass2(dbc dbctx.Context, payload validator.TaskConfigPayload, result *Result) error {
	for _, sp := range payload.Stages {
		realID := sp.ID
		if sp.ID <= 0 {
			realID = result.StageIDMap[sp.ID]
		}
		pred := rewriteIDs(sp.PredecessorStages, result.StageIDMap)
		succ := rewriteIDs(sp.SuccessorStages, result.StageIDMap)
		changed, err := r.stageRepo.UpdateEdges(dbc, realID, pred, succ)
		if err != nil {
			return err
		}
		if changed {
			materialized, err := r.stageExecRepo.Exists(dbc, realID)
			if err != nil {
				return err
			}
			if materialized {
				if err := r.stageExecRepo.SyncSuccessors(dbc, realID, succ); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Reconciler) reconcileTasksPass1(dbc dbctx.Context, payload validator.TaskConfigPayload, tasksByID map[int64]domain.Task, result *Result) error {
	seen := map[int64]bool{}
	for _, tp := range payload.Tasks {
		stageID, warning := resolveStageID(tp.StageID, result.StageIDMap)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if tp.ID <= 0 {
			row := &domain.Task{
				ProjectID:     payload.ProjectID,
				StageID:       stageID,
				Name:          tp.Name,
				Description:   tp.Description,
				StartDate:     parseDate(tp.StartTime),
				EndDate:       parseDate(tp.EndTime),
				Duration:      tp.Duration,
				JobNumber:     tp.JobNumber,
				ApprovalType:  domain.ApprovalType(tp.ApprovalType),
				ApprovalNodes: domain.EncodeIDs(tp.ApprovalNodes),
				LayoutBlob:    encodePosition(tp.Position),
			}
			if err := r.taskRepo.Insert(dbc, row); err != nil {
				return err
			}
			result.TaskIDMap[tp.ID] = row.ID
			seen[row.ID] = true
			continue
		}
		existing, ok := tasksByID[tp.ID]
		if !ok {
			return fmt.Errorf("%w: task %d not found in project %d", platformerrors.ErrInvalidArgument, tp.ID, payload.ProjectID)
		}
		existing.StageID = stageID
		existing.Name = tp.Name
		existing.Description = tp.Description
		existing.StartDate = parseDate(tp.StartTime)
		existing.EndDate = parseDate(tp.EndTime)
		existing.Duration = tp.Duration
		existing.JobNumber = tp.JobNumber
		existing.ApprovalType = domain.ApprovalType(tp.ApprovalType)
		existing.ApprovalNodes = domain.EncodeIDs(tp.ApprovalNodes)
		existing.LayoutBlob = encodePosition(tp.Position)
		if err := r.taskRepo.UpdateScalarFields(dbc, &existing); err != nil {
			return err
		}
		if err := r.taskRepo.UpdateStageID(dbc, tp.ID, stageID); err != nil {
			return err
		}
		seen[tp.ID] = true
	}
	for id, existing := range tasksByID {
		if seen[id] || !existing.Enable {
			continue
		}
		materialized, err := r.taskExecRepo.Exists(dbc, id)
		if err != nil {
			return err
		}
		if materialized {
			return fmt.Errorf("%w: task %d already generated, cannot delete", platformerrors.ErrConflict, id)
		}
		if err := r.taskRepo.SoftDelete(dbc, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) reconcileTasksPass2(dbc dbctx.Context, payload validator.TaskConfigPayload, result *Result) error {
	for _, tp := range payload.Tasks {
		realID := tp.ID
		if tp.ID <= 0 {
			realID = result.TaskIDMap[tp.ID]
		}
		pred := rewriteIDs(tp.PredecessorTasks, result.TaskIDMap)
		succ := rewriteIDs(tp.SuccessorTasks, result.TaskIDMap)
		changed, err := r.taskRepo.UpdateEdges(dbc, realID, pred, succ)
		if err != nil {
			return err
		}
		if changed {
			materialized, err := r.taskExecRepo.Exists(dbc, realID)
			if err != nil {
				return err
			}
			if materialized {
				if err := r.taskExecRepo.SyncSuccessors(dbc, realID, succ); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// rewriteIDs resolves temp IDs (≤0) through idMap and leaves positive real
// IDs untouched (identity on unknown positive IDs, per spec §4.3 step 5/6).
func rewriteIDs(ids []int64, idMap map[int64]int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			if real, ok := idMap[id]; ok {
				out = append(out, real)
			}
			continue
		}
		out = append(out, id)
	}
	return out
}

// resolveStageID rewrites a task's temp stage_id through stageIDMap. A temp
// ID absent from the map resolves to nil with a warning (spec §4.3 step 6).
func resolveStageID(stageID *int64, stageIDMap map[int64]int64) (*int64, string) {
	if stageID == nil {
		return nil, ""
	}
	if *stageID > 0 {
		return stageID, ""
	}
	real, ok := stageIDMap[*stageID]
	if !ok {
		return nil, fmt.Sprintf("task references unresolved temp stage_id %d, stage_id set to null", *stageID)
	}
	return &real, ""
}
