package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
	"agencyhub/internal/service"
)

type invoiceRequest struct {
	Client    *string  `json:"client"`
	Project   *string  `json:"project"`
	Amount    *float64 `json:"amount"`
	IssueDate *Date    `json:"issueDate"`
	DueDate   *Date    `json:"dueDate"`
	Status    *string  `json:"status"`
}

type InvoiceHandler struct {
	invoices *service.InvoiceService
	logger   *zap.Logger
}

func NewInvoiceHandler(invoices *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, logger: logger}
}

func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.invoices.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := pathID(c, "invoice")
	if err != nil {
		c.Error(err)
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoiceRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	if req.Amount == nil {
		c.Error(fmt.Errorf("%w: amount is required", errs.ErrValidation))
		return
	}
	clientID, err := refID("client", req.Client)
	if err != nil {
		c.Error(err)
		return
	}
	projectID, err := refID("project", req.Project)
	if err != nil {
		c.Error(err)
		return
	}

	inv := &model.Invoice{
		Amount:    *req.Amount,
		IssueDate: timeVal(req.IssueDate),
		DueDate:   timeVal(req.DueDate),
		Status:    str(req.Status),
	}
	if clientID != nil {
		inv.ClientID = *clientID
	}
	if projectID != nil {
		inv.ProjectID = *projectID
	}

	invoice, err := h.invoices.Create(c.Request.Context(), inv)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := pathID(c, "invoice")
	if err != nil {
		c.Error(err)
		return
	}
	var req invoiceRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	clientID, err := refID("client", req.Client)
	if err != nil {
		c.Error(err)
		return
	}
	projectID, err := refID("project", req.Project)
	if err != nil {
		c.Error(err)
		return
	}

	invoice, err := h.invoices.Update(c.Request.Context(), id, model.InvoicePatch{
		ClientID:  clientID,
		ProjectID: projectID,
		Amount:    req.Amount,
		IssueDate: timePtr(req.IssueDate),
		DueDate:   timePtr(req.DueDate),
		Status:    nonEmpty(req.Status),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "invoice")
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice removed"})
}
