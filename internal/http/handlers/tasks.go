package handlers

import (
	"net/http"
	"strconv"

	"warthug/internal/domain"

	"github.com/gin-gonic/gin"
)

// ListTasks returns the active catalog annotated for the caller.
func (h *Handler) ListTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	tasks, err := h.Tasks.ListForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CompleteTask claims one task's rewards.
func (h *Handler) CompleteTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	res, err := h.Tasks.CompleteTask(c.Request.Context(), userID, taskID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CompletedTasks lists the caller's completion history.
func (h *Handler) CompletedTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	completions, err := h.Tasks.CompletedTasks(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completions": completions})
}

// AdminListTasks returns the full catalog, inactive tasks included.
func (h *Handler) AdminListTasks(c *gin.Context) {
	tasks, err := h.Tasks.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask inserts one catalog task.
func (h *Handler) CreateTask(c *gin.Context) {
	var t domain.Task
	if err := c.BindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if err := h.Tasks.CreateTask(c.Request.Context(), &t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": t})
}

// CreateTasks inserts a batch of catalog tasks.
func (h *Handler) CreateTasks(c *gin.Context) {
	var batch []*domain.Task
	if err := c.BindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if err := h.Tasks.CreateTasks(c.Request.Context(), batch); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": batch})
}

// UpdateTask replaces one catalog task.
func (h *Handler) UpdateTask(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	var t domain.Task
	if err := c.BindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	t.ID = taskID
	if err := h.Tasks.UpdateTask(c.Request.Context(), &t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

// DeleteTask removes one catalog task.
func (h *Handler) DeleteTask(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	if err := h.Tasks.DeleteTask(c.Request.Context(), taskID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": taskID})
}
