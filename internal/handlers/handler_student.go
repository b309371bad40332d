package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
)

// studentHandler handles HTTP requests for the student directory and the
// per-student fee views.
type studentHandler struct {
	studentService        portssvc.StudentSvcFacade
	summaryService        portssvc.SummarySvcFacade
	correctionService     portssvc.CorrectionSvcFacade
	reconciliationService portssvc.ReconciliationSvcFacade
}

func newStudentHandler(
	studentService portssvc.StudentSvcFacade,
	summaryService portssvc.SummarySvcFacade,
	correctionService portssvc.CorrectionSvcFacade,
	reconciliationService portssvc.ReconciliationSvcFacade,
) *studentHandler {
	return &studentHandler{
		studentService:        studentService,
		summaryService:        summaryService,
		correctionService:     correctionService,
		reconciliationService: reconciliationService,
	}
}

// listStudents godoc
// @Summary List students
// @Description Retrieves students ordered by admission time with token pagination
// @Tags students
// @Produce json
// @Param limit query int false "Page size (default 20)"
// @Param nextToken query string false "Continuation token from the previous page"
// @Success 200 {object} dto.ListStudentsResponse
// @Failure 400 {object} map[string]string "Invalid pagination token"
// @Failure 500 {object} map[string]string "Failed to list students"
// @Router /students [get]
func (h *studentHandler) listStudents(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	params := dto.ListStudentsParams{}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		params.Limit = limit
	}
	if token := c.Query("nextToken"); token != "" {
		params.NextToken = &token
	}

	resp, err := h.studentService.ListStudents(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to list students", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list students"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getStudent godoc
// @Summary Get a student
// @Tags students
// @Produce json
// @Param studentID path string true "Student ID"
// @Success 200 {object} dto.StudentResponse
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 500 {object} map[string]string "Failed to retrieve student"
// @Router /students/{studentID} [get]
func (h *studentHandler) getStudent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	studentID := c.Param("studentID")

	student, err := h.studentService.GetStudentByID(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		logger.Error("Failed to get student", slog.String("error", err.Error()), slog.String("student_id", studentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve student"})
		return
	}

	c.JSON(http.StatusOK, dto.ToStudentResponse(student))
}

// getFeeSummary godoc
// @Summary Get a student's fee summary
// @Description Merges the fee aggregate, the invoice ledger and the payment status classification into one view
// @Tags fees
// @Produce json
// @Param studentID path string true "Student ID"
// @Success 200 {object} dto.FeeSummaryResponse
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 500 {object} map[string]string "Failed to build fee summary"
// @Router /students/{studentID}/fees/summary [get]
func (h *studentHandler) getFeeSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	studentID := c.Param("studentID")

	summary, err := h.summaryService.GetFeeSummary(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		logger.Error("Failed to build fee summary", slog.String("error", err.Error()), slog.String("student_id", studentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build fee summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// applyCorrection godoc
// @Summary Apply a retroactive correction
// @Description Overwrites either the admission profile or the fee aggregate, journaling before and after states
// @Tags corrections
// @Accept json
// @Produce json
// @Param studentID path string true "Student ID"
// @Param correction body dto.CorrectionRequest true "Correction"
// @Success 200 {object} dto.CorrectionResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 409 {object} map[string]string "Student was modified concurrently"
// @Failure 500 {object} map[string]string "Failed to apply correction"
// @Router /students/{studentID}/corrections [post]
func (h *studentHandler) applyCorrection(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	studentID := c.Param("studentID")

	req := dto.CorrectionRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for ApplyCorrection", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	appliedBy, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Correcting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var resp *dto.CorrectionResponse
	var err error
	switch req.Type {
	case "admission":
		if req.Admission == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "admission payload is required for an admission correction"})
			return
		}
		resp, err = h.correctionService.CorrectAdmission(c.Request.Context(), studentID, *req.Admission, appliedBy)
	case "fee":
		if req.Fee == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fee payload is required for a fee correction"})
			return
		}
		resp, err = h.correctionService.CorrectFee(c.Request.Context(), studentID, *req.Fee, appliedBy)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be admission or fee"})
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		case errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error applying correction", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrConflict):
			logger.Warn("Version conflict applying correction", slog.String("student_id", studentID))
			c.JSON(http.StatusConflict, gin.H{"error": "Student was modified concurrently, retry the correction"})
		default:
			logger.Error("Failed to apply correction", slog.String("error", err.Error()), slog.String("student_id", studentID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply correction"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listCorrections godoc
// @Summary List a student's correction history
// @Tags corrections
// @Produce json
// @Param studentID path string true "Student ID"
// @Success 200 {array} domain.CorrectionLog
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 500 {object} map[string]string "Failed to list corrections"
// @Router /students/{studentID}/corrections [get]
func (h *studentHandler) listCorrections(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	studentID := c.Param("studentID")

	logs, err := h.correctionService.ListCorrections(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		logger.Error("Failed to list corrections", slog.String("error", err.Error()), slog.String("student_id", studentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list corrections"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// reconcileStudent godoc
// @Summary Reconcile one student's fee aggregate against the ledger
// @Tags reconciliation
// @Produce json
// @Param studentID path string true "Student ID"
// @Success 200 {object} domain.StudentReconciliation
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 500 {object} map[string]string "Failed to reconcile student"
// @Router /students/{studentID}/reconciliation [get]
func (h *studentHandler) reconcileStudent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	studentID := c.Param("studentID")

	report, err := h.reconciliationService.ReconcileStudent(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		logger.Error("Failed to reconcile student", slog.String("error", err.Error()), slog.String("student_id", studentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile student"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// registerStudentRoutes registers student directory and per-student fee routes
func registerStudentRoutes(
	group *gin.RouterGroup,
	studentService portssvc.StudentSvcFacade,
	summaryService portssvc.SummarySvcFacade,
	correctionService portssvc.CorrectionSvcFacade,
	reconciliationService portssvc.ReconciliationSvcFacade,
) {
	h := newStudentHandler(studentService, summaryService, correctionService, reconciliationService)

	students := group.Group("/students")
	{
		students.GET("", h.listStudents)
		students.GET("/:studentID", h.getStudent)
		students.GET("/:studentID/fees/summary", h.getFeeSummary)
		students.POST("/:studentID/corrections", h.applyCorrection)
		students.GET("/:studentID/corrections", h.listCorrections)
		students.GET("/:studentID/reconciliation", h.reconcileStudent)
	}
}
