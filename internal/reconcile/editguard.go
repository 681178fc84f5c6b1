package reconcile

import (
	"fmt"
	"sort"
	"time"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	platformerrors "github.com/yungbote/neurobridge-backend/internal/platform/errors"
	"github.com/yungbote/neurobridge-backend/internal/validator"
)

const dateLayout = "2006-01-02"

// Guard enforces spec §4.4: once an entity is materialized, most of its
// fields freeze. Successor edges are the one exception — they may gain new
// targets as long as those targets are not themselves materialized yet.
type Guard struct {
	stageExecRepo graphrepo.StageExecutionRepo
	taskExecRepo  graphrepo.TaskExecutionRepo
}

func NewGuard(stageExecRepo graphrepo.StageExecutionRepo, taskExecRepo graphrepo.TaskExecutionRepo) *Guard {
	return &Guard{stageExecRepo: stageExecRepo, taskExecRepo: taskExecRepo}
}

// CheckStage rejects payload changes to a materialized stage's frozen
// fields. Only newly-appended successor IDs are allowed, and only when
// their target is not yet materialized.
func (g *Guard) CheckStage(dbc dbctx.Context, existing domain.Stage, payload validator.StagePayload) error {
	if existing.Name != payload.Name {
		return fmt.Errorf("%w: stage %d name is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	}
	existingPred := domain.DecodeIDs(existing.PredecessorStages)
	if !sortedEqual(existingPred, payload.PredecessorStages) {
		return fmt.Errorf("%w: stage %d predecessor_stages is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	}
	existingSucc := domain.DecodeIDs(existing.SuccessorStages)
	added, err := onlyAugmented(existingSucc, payload.SuccessorStages)
	if err != nil {
		return fmt.Errorf("%w: stage %d successor_stages: %v", platformerrors.ErrConflict, existing.ID, err)
	}
	for _, succID := range added {
		materialized, err := g.stageExecRepo.Exists(dbc, succID)
		if err != nil {
			return err
		}
		if materialized {
			return fmt.Errorf("%w: stage %d cannot add successor %d, already materialized", platformerrors.ErrConflict, existing.ID, succID)
		}
	}
	return nil
}

// CheckTask rejects payload changes to a materialized task's frozen fields,
// mirroring CheckStage.
func (g *Guard) CheckTask(dbc dbctx.Context, existing domain.Task, payload validator.TaskPayload) error {
	switch {
	case existing.Name != payload.Name:
		return fmt.Errorf("%w: task %d name is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	case existing.Description != payload.Description:
		return fmt.Errorf("%w: task %d description is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	case !sameDate(existing.StartDate, payload.StartTime):
		return fmt.Errorf("%w: task %d start_date is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	case !sameDate(existing.EndDate, payload.EndTime):
		return fmt.Errorf("%w: task %d end_date is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	case !samePtrInt(existing.Duration, payload.Duration):
		return fmt.Errorf("%w: task %d duration is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	case existing.JobNumber != payload.JobNumber:
		return fmt.Errorf("%w: task %d job_number is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	case string(existing.ApprovalType) != string(payload.ApprovalType):
		return fmt.Errorf("%w: task %d approval_type is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	}
	existingNodes := domain.DecodeIDs(existing.ApprovalNodes)
	if !sortedEqual(existingNodes, payload.ApprovalNodes) {
		return fmt.Errorf("%w: task %d approval_nodes is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	}
	existingPred := domain.DecodeIDs(existing.PredecessorTasks)
	if !sortedEqual(existingPred, payload.PredecessorTasks) {
		return fmt.Errorf("%w: task %d predecessor_tasks is frozen once materialized", platformerrors.ErrConflict, existing.ID)
	}
	existingSucc := domain.DecodeIDs(existing.SuccessorTasks)
	added, err := onlyAugmented(existingSucc, payload.SuccessorTasks)
	if err != nil {
		return fmt.Errorf("%w: task %d successor_tasks: %v", platformerrors.ErrConflict, existing.ID, err)
	}
	for _, succID := range added {
		materialized, err := g.taskExecRepo.Exists(dbc, succID)
		if err != nil {
			return err
		}
		if materialized {
			return fmt.Errorf("%w: task %d cannot add successor %d, already materialized", platformerrors.ErrConflict, existing.ID, succID)
		}
	}
	return nil
}

// onlyAugmented returns the IDs present in proposed but not in current, and
// errors if current is not a subset of proposed (i.e. the payload dropped or
// reordered-with-removal an existing successor).
func onlyAugmented(current, proposed []int64) ([]int64, error) {
	proposedSet := make(map[int64]bool, len(proposed))
	for _, id := range proposed {
		proposedSet[id] = true
	}
	for _, id := range current {
		if !proposedSet[id] {
			return nil, fmt.Errorf("existing successor %d was removed", id)
		}
	}
	currentSet := make(map[int64]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}
	var added []int64
	for _, id := range proposed {
		if !currentSet[id] {
			added = append(added, id)
		}
	}
	return added, nil
}

func sortedEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]int64{}, a...)
	bc := append([]int64{}, b...)
	sort.Slice(ac, func(i, j int) bool { return ac[i] < ac[j] })
	sort.Slice(bc, func(i, j int) bool { return bc[i] < bc[j] })
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}

// sameDate compares a stored *time.Time against a payload's YYYY-MM-DD
// string. An unparsable or absent payload date is treated as "unchanged"
// only when existing is also nil; the Validator has already rejected a
// materialization-eligible task with a missing date by this point.
func sameDate(existing *time.Time, proposed *string) bool {
	if existing == nil && proposed == nil {
		return true
	}
	if existing == nil || proposed == nil {
		return false
	}
	parsed, err := time.Parse(dateLayout, *proposed)
	if err != nil {
		return false
	}
	return existing.Format(dateLayout) == parsed.Format(dateLayout)
}

func samePtrInt(existing *int, proposed *int) bool {
	if existing == nil && proposed == nil {
		return true
	}
	if existing == nil || proposed == nil {
		return false
	}
	return *existing == *proposed
}
