package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
)

// invoiceHandler handles HTTP requests for the invoice ledger.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
}

func newInvoiceHandler(invoiceService portssvc.InvoiceSvcFacade) *invoiceHandler {
	return &invoiceHandler{invoiceService: invoiceService}
}

// createInvoice godoc
// @Summary Create a manual invoice
// @Description Creates an invoice for a student, optionally with an initial payment, and refreshes the student's fee aggregate atomically
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoice body dto.CreateInvoiceRequest true "Invoice"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 409 {object} map[string]string "Student was modified concurrently"
// @Failure 500 {object} map[string]string "Failed to create invoice"
// @Router /invoices [post]
func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	req := dto.CreateInvoiceRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	collectedBy, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Collecting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, collectedBy)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Student not found for invoice", slog.String("student_id", req.StudentID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidAmount):
			logger.Warn("Validation error creating invoice", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Student was modified concurrently, retry the request"})
		default:
			logger.Error("Failed to create invoice in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		}
		return
	}

	logger.Info("Invoice created via API", slog.String("invoice_id", invoice.InvoiceID), slog.String("invoice_no", invoice.InvoiceNo))
	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(invoice))
}

// getInvoice godoc
// @Summary Get an invoice
// @Tags invoices
// @Produce json
// @Param invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to retrieve invoice"
// @Router /invoices/{invoiceID} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	invoiceID := c.Param("invoiceID")

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		logger.Error("Failed to get invoice", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve invoice"})
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// listStudentInvoices godoc
// @Summary List a student's invoices
// @Description Retrieves all invoices for a student, most recent first
// @Tags invoices
// @Produce json
// @Param studentID path string true "Student ID"
// @Success 200 {array} dto.InvoiceResponse
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 500 {object} map[string]string "Failed to list invoices"
// @Router /students/{studentID}/invoices [get]
func (h *invoiceHandler) listStudentInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	studentID := c.Param("studentID")

	invoices, err := h.invoiceService.ListInvoicesByStudent(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		logger.Error("Failed to list invoices", slog.String("error", err.Error()), slog.String("student_id", studentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invoices"})
		return
	}

	responses := make([]dto.InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = dto.ToInvoiceResponse(&invoices[i])
	}
	c.JSON(http.StatusOK, responses)
}

// recordPayment godoc
// @Summary Record a payment against an invoice
// @Description Appends a payment and recomputes the invoice's derived state; overpayment is accepted and flagged, never clamped
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoiceID path string true "Invoice ID"
// @Param payment body dto.RecordPaymentRequest true "Payment"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid payment amount"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 409 {object} map[string]string "Invoice was modified concurrently"
// @Failure 500 {object} map[string]string "Failed to record payment"
// @Router /invoices/{invoiceID}/payments [post]
func (h *invoiceHandler) recordPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	invoiceID := c.Param("invoiceID")

	req := dto.RecordPaymentRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for RecordPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	collectedBy, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Collecting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), invoiceID, req, collectedBy)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		case errors.Is(err, apperrors.ErrInvalidAmount), errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Invalid payment", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Invoice was modified concurrently, retry the payment"})
		default:
			logger.Error("Failed to record payment in service", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
		}
		return
	}

	logger.Info("Payment recorded via API", slog.String("invoice_id", invoiceID))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// deleteInvoice godoc
// @Summary Delete an invoice
// @Description Hard-deletes an invoice with its items and payments; requires confirm=true. The student's aggregate is not rewritten; the response warns when it still mirrors the deleted invoice
// @Tags invoices
// @Produce json
// @Param invoiceID path string true "Invoice ID"
// @Param confirm query bool true "Must be true to confirm the destructive delete"
// @Success 200 {object} dto.DeleteInvoiceResponse
// @Failure 400 {object} map[string]string "Missing confirmation"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to delete invoice"
// @Router /invoices/{invoiceID} [delete]
func (h *invoiceHandler) deleteInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	invoiceID := c.Param("invoiceID")
	confirm := c.Query("confirm") == "true"

	requestedBy, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Deleting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.invoiceService.DeleteInvoice(c.Request.Context(), invoiceID, confirm, requestedBy)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		case errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Unconfirmed invoice delete", slog.String("invoice_id", invoiceID))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to delete invoice in service", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete invoice"})
		}
		return
	}

	logger.Info("Invoice deleted via API", slog.String("invoice_id", invoiceID), slog.String("requested_by", requestedBy))
	c.JSON(http.StatusOK, resp)
}

// registerInvoiceRoutes registers invoice ledger routes
func registerInvoiceRoutes(group *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade) {
	h := newInvoiceHandler(invoiceService)

	invoices := group.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.GET("/:invoiceID", h.getInvoice)
		invoices.DELETE("/:invoiceID", h.deleteInvoice)
		invoices.POST("/:invoiceID/payments", h.recordPayment)
	}
	group.GET("/students/:studentID/invoices", h.listStudentInvoices)
}
