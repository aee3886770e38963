package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agencyhub/internal/model"
	"agencyhub/internal/service"
)

type clientRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	CompanyName *string `json:"companyName"`
	Address     *string `json:"address"`
	Status      *string `json:"status"`
}

type ClientHandler struct {
	clients *service.ClientService
	logger  *zap.Logger
}

func NewClientHandler(clients *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

// List handles GET /clients
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// Get handles GET /clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	id, err := pathID(c, "client")
	if err != nil {
		c.Error(err)
		return
	}
	client, err := h.clients.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// Create handles POST /clients
func (h *ClientHandler) Create(c *gin.Context) {
	var req clientRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	client, err := h.clients.Create(c.Request.Context(), &model.Client{
		Name:        str(req.Name),
		Email:       str(req.Email),
		Phone:       str(req.Phone),
		CompanyName: str(req.CompanyName),
		Address:     str(req.Address),
		Status:      str(req.Status),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// Update handles PUT /clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	id, err := pathID(c, "client")
	if err != nil {
		c.Error(err)
		return
	}
	var req clientRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	client, err := h.clients.Update(c.Request.Context(), id, model.ClientPatch{
		Name:        nonEmpty(req.Name),
		Email:       nonEmpty(req.Email),
		Phone:       nonEmpty(req.Phone),
		CompanyName: nonEmpty(req.CompanyName),
		Address:     nonEmpty(req.Address),
		Status:      nonEmpty(req.Status),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// Delete handles DELETE /clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "client")
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.clients.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client removed"})
}
