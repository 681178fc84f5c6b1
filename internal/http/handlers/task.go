package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
	"github.com/yungbote/neurobridge-backend/internal/projectview"
	"github.com/yungbote/neurobridge-backend/internal/reconcile"
	"github.com/yungbote/neurobridge-backend/internal/validator"

	"github.com/yungbote/neurobridge-backend/internal/http/response"
)

// TaskHandler serves spec §6's plan-configuration routes: save, save-and-
// generate, project list, and project detail.
type TaskHandler struct {
	log         *logger.Logger
	reconciler  *reconcile.Reconciler
	projectView *projectview.Service
}

func NewTaskHandler(baseLog *logger.Logger, reconciler *reconcile.Reconciler, projectView *projectview.Service) *TaskHandler {
	return &TaskHandler{log: baseLog.With("handler", "TaskHandler"), reconciler: reconciler, projectView: projectView}
}

// POST /task/save
func (h *TaskHandler) Save(c *gin.Context) {
	h.save(c, false)
}

// POST /task/save-and-generate
func (h *TaskHandler) SaveAndGenerate(c *gin.Context) {
	h.save(c, true)
}

func (h *TaskHandler) save(c *gin.Context, generate bool) {
	var dto taskConfigPayloadDTO
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dto); err != nil {
		response.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	payload := dto.toValidator()
	if _, err := validator.Validate(payload); err != nil {
		h.respondSemanticError(c, err)
		return
	}

	if _, err := h.reconciler.Save(c.Request.Context(), payload, generate); err != nil {
		h.respondSemanticError(c, err)
		return
	}

	detail, err := h.projectView.Detail(c.Request.Context(), payload.ProjectID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.RespondOK(c, detail)
}

// GET /task/project/list
func (h *TaskHandler) ListProjects(c *gin.Context) {
	rows, err := h.projectView.List(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.RespondOK(c, rows)
}

// GET /task/project/{id}
func (h *TaskHandler) GetProject(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid project id", nil)
		return
	}
	detail, err := h.projectView.Detail(c.Request.Context(), projectID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.RespondOK(c, detail)
}

// respondSemanticError surfaces a single message naming the offending entity,
// per spec §7 kind 2/3: every validator/reconciler error identifies its
// entity by name already, so the handler only needs to forward it.
func (h *TaskHandler) respondSemanticError(c *gin.Context, err error) {
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		response.RespondError(c, http.StatusInternalServerError, vErr.Error(), nil)
		return
	}
	response.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
}
