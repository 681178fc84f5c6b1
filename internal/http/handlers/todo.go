package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-backend/internal/approval"
	graphrepo "github.com/yungbote/neurobridge-backend/internal/data/repos/graph"
	domain "github.com/yungbote/neurobridge-backend/internal/domain"
	"github.com/yungbote/neurobridge-backend/internal/materialize"
	"github.com/yungbote/neurobridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-backend/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
	"github.com/yungbote/neurobridge-backend/internal/platform/redisx"
	"github.com/yungbote/neurobridge-backend/internal/query"

	"github.com/yungbote/neurobridge-backend/internal/http/response"
)

// TodoHandler serves spec §6's submit/approve/reject/resubmit/list/detail
// routes against the Approval Engine and the Query/Projection Service.
type TodoHandler struct {
	log          *logger.Logger
	db           *gorm.DB
	taskRepo     graphrepo.TaskRepo
	taskExecRepo graphrepo.TaskExecutionRepo
	approval     *approval.Engine
	materializer *materialize.Engine
	query        *query.Service
	cache        *redisx.Client
}

func NewTodoHandler(baseLog *logger.Logger, db *gorm.DB, taskRepo graphrepo.TaskRepo, taskExecRepo graphrepo.TaskExecutionRepo, approvalEngine *approval.Engine, materializer *materialize.Engine, queryService *query.Service, cache *redisx.Client) *TodoHandler {
	return &TodoHandler{
		log:          baseLog.With("handler", "TodoHandler"),
		db:           db,
		taskRepo:     taskRepo,
		taskExecRepo: taskExecRepo,
		approval:     approvalEngine,
		materializer: materializer,
		query:        queryService,
		cache:        cache,
	}
}

type submitRequest struct {
	SubmitText   string   `json:"submitText"`
	SubmitImages []string `json:"submitImages"`
}

type approveRequest struct {
	ApprovalComment string   `json:"approvalComment"`
	ApprovalImages  []string `json:"approvalImages"`
}

// POST /todo/submit/{task_id}
func (h *TodoHandler) Submit(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("task_id"), 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid task id", nil)
		return
	}
	identity, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	task, err := h.taskRepo.GetByID(dbctx.Context{Ctx: c.Request.Context()}, taskID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if task == nil {
		response.RespondError(c, http.StatusBadRequest, "task not found", nil)
		return
	}

	var applyID string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: c.Request.Context(), Tx: tx}
		if task.ApprovalType == domain.ApprovalTypeNone {
			// spec §4.6: approval_type=none skips the Approval Engine entirely
			// and closes the task directly (the 1->3 transition with no
			// Application row), matching the original's submit_task branch.
			te, err := h.taskExecRepo.GetByTaskID(dbc, taskID)
			if err != nil {
				return err
			}
			if te == nil || te.Status != domain.TaskStatusInProgress {
				return fmt.Errorf("task %d is not in progress", taskID)
			}
			return h.materializer.CompleteTask(dbc, taskID)
		}
		var txErr error
		applyID, txErr = h.approval.Submit(dbc, taskID, identity.JobNumber, req.SubmitText, req.SubmitImages)
		return txErr
	})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	h.invalidate(c, identity)
	if task.ApprovalType == domain.ApprovalTypeNone {
		response.RespondOK(c, gin.H{"apply_id": nil})
		return
	}
	response.RespondOK(c, gin.H{"apply_id": applyID})
}

// POST /todo/approve/{apply_id}
func (h *TodoHandler) Approve(c *gin.Context) {
	applyID := c.Param("apply_id")
	identity, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var isCompleted bool
	err := h.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: c.Request.Context(), Tx: tx}
		var txErr error
		isCompleted, txErr = h.approval.Approve(dbc, applyID, identity.JobNumber, req.ApprovalComment)
		return txErr
	})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	h.invalidate(c, identity)
	response.RespondOK(c, gin.H{"is_completed": isCompleted})
}

// POST /todo/reject/{apply_id}
func (h *TodoHandler) Reject(c *gin.Context) {
	applyID := c.Param("apply_id")
	identity, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.ApprovalComment == "" {
		response.RespondError(c, http.StatusInternalServerError, "reject requires a comment", nil)
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: c.Request.Context(), Tx: tx}
		return h.approval.Reject(dbc, applyID, identity.JobNumber, req.ApprovalComment)
	})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	h.invalidate(c, identity)
	response.RespondOK(c, nil)
}

// POST /todo/resubmit/{task_id}
func (h *TodoHandler) Resubmit(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("task_id"), 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid task id", nil)
		return
	}
	identity, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: c.Request.Context(), Tx: tx}
		return h.approval.Resubmit(dbc, taskID, identity.JobNumber)
	})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	h.invalidate(c, identity)
	response.RespondOK(c, nil)
}

// GET /todo/my/tasks/list
func (h *TodoHandler) MyTasks(c *gin.Context) {
	identity, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}
	view, err := h.query.MyTasks(c.Request.Context(), identity.JobNumber, identity.OrgPositionID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.RespondOK(c, view)
}

// GET /todo/history/tasks/list (supplemented route, see SPEC_FULL.md §6)
func (h *TodoHandler) HistoryTasks(c *gin.Context) {
	identity, ok := ctxutil.GetIdentity(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}
	pageNum, _ := strconv.Atoi(c.Query("pageNum"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	view, err := h.query.HistoryTasks(c.Request.Context(), identity.JobNumber, pageNum, pageSize)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.RespondOK(c, view)
}

// GET /todo/task/{id}/detail
func (h *TodoHandler) TaskDetail(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid task id", nil)
		return
	}
	identity, _ := ctxutil.GetIdentity(c.Request.Context())
	view, err := h.query.TaskDetail(c.Request.Context(), taskID, identity.JobNumber)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.RespondOK(c, view)
}

// invalidate evicts the caller's own cached "my tasks" views: the one keyed
// with its org position and the one keyed without. Views cached for other
// identities (the approver of a submission, the submitter of an approval)
// and the history views are not evicted; they expire with the cache TTL.
// Best-effort — cache is a read-side convenience, not a consistency
// boundary.
func (h *TodoHandler) invalidate(c *gin.Context, identity ctxutil.Identity) {
	h.cache.Invalidate(c.Request.Context(),
		redisx.MyTasksKey(identity.JobNumber, identity.OrgPositionID, 0),
		redisx.MyTasksKey(identity.JobNumber, 0, 0),
	)
}
