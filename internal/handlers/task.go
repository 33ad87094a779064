package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/assigndesk/task-assignment-api/internal/dto"
	apierrors "github.com/assigndesk/task-assignment-api/internal/errors"
	"github.com/assigndesk/task-assignment-api/internal/middleware"
	"github.com/assigndesk/task-assignment-api/internal/models"
	"github.com/assigndesk/task-assignment-api/internal/services"
	"github.com/assigndesk/task-assignment-api/internal/storage"
	"github.com/assigndesk/task-assignment-api/internal/utils"
)

// TaskHandler coordinates the task endpoints.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, okID := middleware.GetUserID(c)
	role, okRole := middleware.GetUserRole(c)
	if !okID || !okRole {
		return services.Actor{}, false
	}
	return services.Actor{ID: userID, Role: role}, true
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// Create handles the multipart task-creation form: required text fields
// plus up to three PDF attachments under the documents field.
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	assigneeID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		apierrors.BadRequest(c, "Invalid multipart form")
		return
	}

	input := services.CreateTaskInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Deadline:    c.PostForm("deadline"),
		Priority:    c.PostForm("priority"),
	}

	task, err := h.taskService.Create(input, actor.ID, assigneeID, form.File[storage.UploadField])
	if err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Task created successfully", dto.ToTaskDTO(*task))
}

// DownloadDocument streams a stored attachment with its original filename.
func (h *TaskHandler) DownloadDocument(c *gin.Context) {
	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("docIndex"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid document index")
		return
	}

	doc, err := h.taskService.GetDocument(taskID, index)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	if _, err := os.Stat(doc.StoragePath); err != nil {
		apierrors.NotFound(c, "File not found on server")
		return
	}

	c.FileAttachment(doc.StoragePath, doc.OriginalName)
}

// UpdateStatus is the generic guarded status update. Both the admin route
// and the self-service route land here; permission is resolved by the
// workflow predicate.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status          string `json:"status" binding:"required"`
		RejectionReason string `json:"rejectionReason"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateStatus(taskID, services.UpdateStatusInput{
		Status:          req.Status,
		RejectionReason: req.RejectionReason,
	}, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Task updated successfully", dto.ToTaskDTO(*task))
}

// Start moves a pending task to in-progress.
func (h *TaskHandler) Start(c *gin.Context) {
	h.sugar(c, "Task started", func(taskID uint64, actor services.Actor) (*models.Task, error) {
		return h.taskService.Start(taskID, actor)
	})
}

// RequestReview moves an in-progress task to review-requested.
func (h *TaskHandler) RequestReview(c *gin.Context) {
	h.sugar(c, "Task review requested", func(taskID uint64, actor services.Actor) (*models.Task, error) {
		return h.taskService.RequestReview(taskID, actor)
	})
}

// Approve marks a review-requested task completed.
func (h *TaskHandler) Approve(c *gin.Context) {
	h.sugar(c, "Task approved and marked as completed", func(taskID uint64, actor services.Actor) (*models.Task, error) {
		return h.taskService.Approve(taskID, actor)
	})
}

// Reject marks a review-requested task rejected with a reason.
func (h *TaskHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	type RejectRequest struct {
		RejectionReason string `json:"rejectionReason"`
	}

	// Body is optional for reject; an absent body means no reason given.
	var req RejectRequest
	_ = c.ShouldBindJSON(&req)

	task, err := h.taskService.Reject(taskID, req.RejectionReason, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Task review rejected", dto.ToTaskDTO(*task))
}

func (h *TaskHandler) sugar(c *gin.Context, message string, op func(uint64, services.Actor) (*models.Task, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	task, err := op(taskID, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusOK, message, dto.ToTaskDTO(*task))
}

// Reassign is the admin full-field update used for corrective edits.
func (h *TaskHandler) Reassign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	var req services.ReassignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.Reassign(taskID, req, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Task updated successfully", dto.ToTaskDTO(*task))
}

// Delete removes a task, its document records and stored files.
func (h *TaskHandler) Delete(c *gin.Context) {
	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	if err := h.taskService.Delete(taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Task deleted", nil)
}

// List returns all tasks, paginated. Admin only (enforced by the route).
func (h *TaskHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	tasks, total, err := h.taskService.List(params)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All tasks fetched",
		"data":    dto.ToTaskDTOs(tasks),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// ListForUser returns the tasks assigned to one user. A non-admin may only
// fetch their own list.
func (h *TaskHandler) ListForUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if actor.Role != models.RoleAdmin && actor.ID != userID {
		apierrors.Forbidden(c, "You can only view your own tasks")
		return
	}

	tasks, err := h.taskService.ListForUser(userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Tasks fetched for user", dto.ToTaskDTOs(tasks))
}

// ListAdminTasks returns the tasks the calling admin has assigned. The
// adminId query parameter must match the caller.
func (h *TaskHandler) ListAdminTasks(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	adminID, err := strconv.ParseUint(c.Query("adminId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid adminId")
		return
	}

	if adminID != actor.ID {
		apierrors.Forbidden(c, "You can only view your own tasks")
		return
	}

	tasks, err := h.taskService.ListAssignedBy(adminID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Tasks fetched for admin", dto.ToTaskDTOs(tasks))
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrDocumentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidDeadline),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrAssigneeNotFound):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, storage.ErrTooManyFiles),
		errors.Is(err, storage.ErrFileTooLarge),
		errors.Is(err, storage.ErrInvalidFileType):
		apierrors.UploadError(c, err.Error())
	case errors.Is(err, services.ErrNotTaskAssignee),
		errors.Is(err, services.ErrTransitionNotAllowed):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskConflict):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
