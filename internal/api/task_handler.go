package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
	"agencyhub/internal/service"
)

type taskRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Project     *string `json:"project"`
	AssignedTo  *string `json:"assignedTo"`
	DueDate     *Date   `json:"dueDate"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

type taskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type TaskHandler struct {
	tasks  *service.TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.tasks.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, err := pathID(c, "task")
	if err != nil {
		c.Error(err)
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	projectID, err := refID("project", req.Project)
	if err != nil {
		c.Error(err)
		return
	}
	assignee, err := refID("assignedTo", req.AssignedTo)
	if err != nil {
		c.Error(err)
		return
	}

	t := &model.Task{
		Name:         str(req.Name),
		Description:  str(req.Description),
		AssignedToID: assignee,
		DueDate:      timePtr(req.DueDate),
		Status:       str(req.Status),
		Priority:     str(req.Priority),
	}
	if projectID != nil {
		t.ProjectID = *projectID
	}

	task, err := h.tasks.Create(c.Request.Context(), t)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, err := pathID(c, "task")
	if err != nil {
		c.Error(err)
		return
	}
	var req taskRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	projectID, err := refID("project", req.Project)
	if err != nil {
		c.Error(err)
		return
	}
	assignee, err := refID("assignedTo", req.AssignedTo)
	if err != nil {
		c.Error(err)
		return
	}

	actor, _ := identityFrom(c)
	task, err := h.tasks.Update(c.Request.Context(), actor, id, model.TaskPatch{
		Name:        nonEmpty(req.Name),
		Description: nonEmpty(req.Description),
		ProjectID:   projectID,
		AssignedTo:  assignee,
		DueDate:     timePtr(req.DueDate),
		Status:      nonEmpty(req.Status),
		Priority:    nonEmpty(req.Priority),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateStatus handles PATCH /tasks/:id/status，Admin 或负责人可调用
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c, "task")
	if err != nil {
		c.Error(err)
		return
	}
	var req taskStatusRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	actor, ok := identityFrom(c)
	if !ok {
		c.Error(errs.ErrUnauthenticated)
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Info("Task status updated",
		zap.String("task_id", id.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("status", task.Status),
	)
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "task")
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task removed"})
}
