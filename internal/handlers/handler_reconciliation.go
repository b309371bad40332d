package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/middleware"
)

// reconciliationHandler exposes the full-directory consistency sweep.
type reconciliationHandler struct {
	reconciliationService portssvc.ReconciliationSvcFacade
}

func newReconciliationHandler(reconciliationService portssvc.ReconciliationSvcFacade) *reconciliationHandler {
	return &reconciliationHandler{reconciliationService: reconciliationService}
}

// reconcileAll godoc
// @Summary Reconcile every student's fee aggregate against the ledger
// @Description Scans the whole directory and returns the inconsistent students with findings
// @Tags reconciliation
// @Produce json
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 500 {object} map[string]string "Failed to run reconciliation"
// @Router /reconciliation [get]
func (h *reconciliationHandler) reconcileAll(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	resp, err := h.reconciliationService.ReconcileAll(c.Request.Context())
	if err != nil {
		logger.Error("Failed to run reconciliation sweep", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run reconciliation"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// registerReconciliationRoutes registers the staff-facing reconciliation route
func registerReconciliationRoutes(group *gin.RouterGroup, reconciliationService portssvc.ReconciliationSvcFacade) {
	h := newReconciliationHandler(reconciliationService)

	group.GET("/reconciliation", h.reconcileAll)
}
