package query

import (
	"fmt"
	"sort"
	"time"

	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/directory"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
	"github.com/yungbote/neurobridge-backend/internal/platform/redisx"
)

const viewCacheTTL = 30 * time.Second

// Service answers the three read views by joining the Graph Store's
// execution/plan tables with the external directory. It never writes.
type Service struct {
	taskExecRepo  graphrepo.TaskExecutionRepo
	stageExecRepo graphrepo.StageExecutionRepo
	stageRepo     graphrepo.StageRepo
	taskRepo      graphrepo.TaskRepo
	appRepo       graphrepo.ApplicationRepo
	ruleRepo      graphrepo.ApprovalRuleRepo
	logRepo       graphrepo.ApprovalLogRepo
	detailRepo    graphrepo.TaskApplyDetailRepo
	dir           directory.Directory
	cache         *redisx.Client
	log           *logger.Logger
}

func NewService(
	taskExecRepo graphrepo.TaskExecutionRepo,
	stageExecRepo graphrepo.StageExecutionRepo,
	stageRepo graphrepo.StageRepo,
	taskRepo graphrepo.TaskRepo,
	appRepo graphrepo.ApplicationRepo,
	ruleRepo graphrepo.ApprovalRuleRepo,
	logRepo graphrepo.ApprovalLogRepo,
	detailRepo graphrepo.TaskApplyDetailRepo,
	dir directory.Directory,
	cache *redisx.Client,
	baseLog *logger.Logger,
) *Service {
	return &Service{
		taskExecRepo:  taskExecRepo,
		stageExecRepo: stageExecRepo,
		stageRepo:     stageRepo,
		taskRepo:      taskRepo,
		appRepo:       appRepo,
		ruleRepo:      ruleRepo,
		logRepo:       logRepo,
		detailRepo:    detailRepo,
		dir:           dir,
		cache:         cache,
		log:           baseLog.With("component", "QueryService"),
	}
}

// deptOf resolves an owning employee's department code/name via the second-
// level department derivation (dept_util.py's 5-character prefix rule).
func (s *Service) deptOf(jobNumber string) (code, name string) {
	if jobNumber == "" {
		return "", ""
	}
	emp, ok := s.dir.Employee(jobNumber)
	if !ok || emp.DepartmentCode == "" {
		return "", ""
	}
	code = directory.SecondLevelDepartmentCode(emp.DepartmentCode)
	if dept, ok := s.dir.Department(code); ok {
		name = dept.Name
	}
	return code, name
}

// projectFromExecution builds a TaskProjection from a materialized
// TaskExecution row (the common case for my-tasks/history-tasks rows).
func (s *Service) projectFromExecution(dbc dbctx.Context, te domain.TaskExecution) TaskProjection {
	deptCode, deptName := s.deptOf(te.JobNumber)
	assigneeName := ""
	if emp, ok := s.dir.Employee(te.JobNumber); ok {
		assigneeName = emp.Name
	}
	var stageName string
	if te.StageID != nil {
		if se, err := s.stageRepo.GetByID(dbc, *te.StageID); err == nil && se != nil {
			stageName = se.Name
		}
	}
	return TaskProjection{
		TaskID:             te.TaskID,
		TaskName:           te.Name,
		TaskDescription:    te.Description,
		ProjectID:          te.ProjectID,
		StageID:            te.StageID,
		StageName:          stageName,
		DeptCode:           deptCode,
		DeptName:           deptName,
		JobNumber:          te.JobNumber,
		AssigneeName:       assigneeName,
		Status:             int(te.Status),
		StatusName:         statusName(int(te.Status)),
		Deadline:           te.EndDate,
		ActualStartTime:    te.ActualStartTime,
		ActualCompleteTime: te.ActualCompleteTime,
	}
}

// projectFromPlan builds a TaskProjection for a plan Task that has never
// materialized, assigning the notGeneratedStatus pseudo-status spec §4.7
// requires for predecessor/successor enrichment.
func (s *Service) projectFromPlan(dbc dbctx.Context, t domain.Task) TaskProjection {
	deptCode, deptName := s.deptOf(t.JobNumber)
	assigneeName := ""
	if emp, ok := s.dir.Employee(t.JobNumber); ok {
		assigneeName = emp.Name
	}
	var stageName string
	if t.StageID != nil {
		if se, err := s.stageRepo.GetByID(dbc, *t.StageID); err == nil && se != nil {
			stageName = se.Name
		}
	}
	return TaskProjection{
		TaskID:          t.ID,
		TaskName:        t.Name,
		TaskDescription: t.Description,
		ProjectID:       t.ProjectID,
		StageID:         t.StageID,
		StageName:       stageName,
		DeptCode:        deptCode,
		DeptName:        deptName,
		JobNumber:       t.JobNumber,
		AssigneeName:    assigneeName,
		Status:          notGeneratedStatus,
		StatusName:      statusName(notGeneratedStatus),
		Deadline:        t.EndDate,
	}
}

// buildCategories computes the project/department/status buckets spec §4.7
// names for a set of projected rows.
func buildCategories(rows []TaskProjection) Categories {
	byProject := map[string]*CategoryBucket{}
	byDept := map[string]*CategoryBucket{}
	byStatus := map[string]*CategoryBucket{}

	for _, r := range rows {
		pKey := fmt.Sprintf("%d", r.ProjectID)
		if b, ok := byProject[pKey]; ok {
			b.Count++
		} else {
			byProject[pKey] = &CategoryBucket{Key: pKey, Label: pKey, Count: 1}
		}

		if r.DeptCode != "" {
			if b, ok := byDept[r.DeptCode]; ok {
				b.Count++
			} else {
				label := r.DeptName
				if label == "" {
					label = r.DeptCode
				}
				byDept[r.DeptCode] = &CategoryBucket{Key: r.DeptCode, Label: label, Count: 1}
			}
		}

		sKey := fmt.Sprintf("%d", r.Status)
		if b, ok := byStatus[sKey]; ok {
			b.Count++
		} else {
			byStatus[sKey] = &CategoryBucket{Key: sKey, Label: r.StatusName, Count: 1}
		}
	}

	return Categories{
		Total:     len(rows),
		ByProject: flattenSorted(byProject),
		ByDept:    flattenSorted(byDept),
		ByStatus:  flattenSorted(byStatus),
	}
}

func flattenSorted(m map[string]*CategoryBucket) []CategoryBucket {
	out := make([]CategoryBucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
