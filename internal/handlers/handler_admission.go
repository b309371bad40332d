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

// admissionHandler handles HTTP requests for student admissions and
// admission-to-fees linking.
type admissionHandler struct {
	admissionService portssvc.AdmissionSvcFacade
}

func newAdmissionHandler(admissionService portssvc.AdmissionSvcFacade) *admissionHandler {
	return &admissionHandler{admissionService: admissionService}
}

// admitStudent godoc
// @Summary Admit a student
// @Description Creates the student record and auto-links a fee invoice; a linking failure is reported as a warning, not an error
// @Tags admissions
// @Accept json
// @Produce json
// @Param admission body dto.AdmitStudentRequest true "Admission form"
// @Success 201 {object} dto.AdmissionResult
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Admission number already exists"
// @Failure 500 {object} map[string]string "Failed to admit student"
// @Router /admissions [post]
func (h *admissionHandler) admitStudent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	req := dto.AdmitStudentRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for AdmitStudent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	admittedBy, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Admitting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.admissionService.AdmitStudent(c.Request.Context(), req, admittedBy)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error admitting student", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrDuplicate):
			logger.Warn("Duplicate admission", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to admit student in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to admit student"})
		}
		return
	}

	logger.Info("Student admitted via API", slog.String("student_id", result.Student.StudentID), slog.Bool("linked", result.Linked))
	c.JSON(http.StatusCreated, result)
}

// linkFees godoc
// @Summary Link an admitted student to a fee invoice
// @Description Creates the admission invoice for a student; idempotent, a repeat call returns the existing invoice
// @Tags admissions
// @Accept json
// @Produce json
// @Param studentID path string true "Student ID"
// @Param link body dto.LinkFeesRequest true "Fee components"
// @Success 200 {object} dto.LinkResult
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Student not found"
// @Failure 500 {object} map[string]string "Failed to link fees"
// @Router /students/{studentID}/fees/link [post]
func (h *admissionHandler) linkFees(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	studentID := c.Param("studentID")

	req := dto.LinkFeesRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for LinkFees", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	actor, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Linking user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.admissionService.LinkAdmissionToFees(c.Request.Context(), studentID, req, actor)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Student not found for linking", slog.String("student_id", studentID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		case errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error linking fees", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to link fees in service", slog.String("error", err.Error()), slog.String("student_id", studentID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link fees"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// registerAdmissionRoutes registers admission specific routes
func registerAdmissionRoutes(group *gin.RouterGroup, admissionService portssvc.AdmissionSvcFacade) {
	h := newAdmissionHandler(admissionService)

	group.POST("/admissions", h.admitStudent)
	group.POST("/students/:studentID/fees/link", h.linkFees)
}
