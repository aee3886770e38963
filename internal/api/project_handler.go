package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"agencyhub/internal/model"
	"agencyhub/internal/service"
)

type projectRequest struct {
	Name        *string `json:"name"`
	Client      *string `json:"client"`
	Description *string `json:"description"`
	StartDate   *Date   `json:"startDate"`
	EndDate     *Date   `json:"endDate"`
	Status      *string `json:"status"`
}

type ProjectHandler struct {
	projects *service.ProjectService
	logger   *zap.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := pathID(c, "project")
	if err != nil {
		c.Error(err)
		return
	}
	project, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	clientID, err := refID("client", req.Client)
	if err != nil {
		c.Error(err)
		return
	}

	p := &model.Project{
		Name:        str(req.Name),
		Description: str(req.Description),
		StartDate:   timeVal(req.StartDate),
		EndDate:     timeVal(req.EndDate),
		Status:      str(req.Status),
	}
	if clientID != nil {
		p.ClientID = *clientID
	}

	project, err := h.projects.Create(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	h.logger.Info("Project created via API", zap.String("project_id", project.ID.String()))
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, err := pathID(c, "project")
	if err != nil {
		c.Error(err)
		return
	}
	var req projectRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	var clientID *uuid.UUID
	if clientID, err = refID("client", req.Client); err != nil {
		c.Error(err)
		return
	}

	project, err := h.projects.Update(c.Request.Context(), id, model.ProjectPatch{
		Name:        nonEmpty(req.Name),
		ClientID:    clientID,
		Description: nonEmpty(req.Description),
		StartDate:   timePtr(req.StartDate),
		EndDate:     timePtr(req.EndDate),
		Status:      nonEmpty(req.Status),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "project")
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project removed"})
}
