package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"taskhive/internal/domain"
	"taskhive/internal/logger"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 10

// ListTasks returns one page of the caller's tasks, newest first.
// Query params: page (default 1), limit (default 10), status, search.
func (h *Handler) ListTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}

	filter := domain.TaskFilter{
		UserID: userID,
		Search: c.Query("search"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if s := c.Query("status"); s != "" {
		status := domain.TaskStatus(s)
		if !domain.ValidTaskStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid status"})
			return
		}
		filter.Status = &status
	}

	tasks, total, err := h.Tasks.List(c.Request.Context(), filter)
	if err != nil {
		logger.Error("list tasks failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching tasks"})
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      tasks,
		"total":      total,
		"page":       page,
		"totalPages": (total + limit - 1) / limit,
	})
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handler) CreateTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}

	var req createTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"title": "title is required"}})
		return
	}

	task := &domain.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskPending,
	}
	if err := h.Tasks.Create(c.Request.Context(), task); err != nil {
		logger.Error("create task failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating task"})
		return
	}

	c.JSON(http.StatusCreated, task)
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// UpdateTask replaces any subset of title, description and status.
func (h *Handler) UpdateTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	upd := domain.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Title != nil && *req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"title": "title must not be empty"}})
		return
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		if !domain.ValidTaskStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"status": "status must be PENDING or COMPLETED"}})
			return
		}
		upd.Status = &status
	}

	task, err := h.Tasks.Update(c.Request.Context(), id, userID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		logger.Error("update task failed", "error", err, "task_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// ToggleTask flips PENDING<->COMPLETED; no other transition exists.
func (h *Handler) ToggleTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	task, err := h.Tasks.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		logger.Error("toggle task: fetch failed", "error", err, "task_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error toggling task"})
		return
	}

	next := task.Status.Toggled()
	task, err = h.Tasks.Update(ctx, id, userID, domain.TaskUpdate{Status: &next})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		logger.Error("toggle task: update failed", "error", err, "task_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error toggling task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.Tasks.Delete(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		logger.Error("delete task failed", "error", err, "task_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// taskID parses the :id param. A non-numeric id can never name an existing
// task, so it gets the same 404 as a missing one.
func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		return 0, false
	}
	return id, true
}
