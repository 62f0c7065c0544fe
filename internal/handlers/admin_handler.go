package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"eduportal/internal/service"
)

// AdminHandler serves staff-only operational endpoints.
type AdminHandler struct {
	sweeper *service.Sweeper
	log     *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sweeper *service.Sweeper, log *zap.Logger) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, log: log}
}

// Reconcile handles POST /admin/reconcile. An optional ?quiz= parameter
// restricts the sweep to one quiz; otherwise every completed attempt is
// examined.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	staff := staffFrom(r)

	var quizID int64
	if raw := r.URL.Query().Get("quiz"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, h.log, http.StatusBadRequest, "invalid quiz id", nil)
			return
		}
		quizID = id
	}

	report, err := h.sweeper.Run(quizID)
	if err != nil {
		writeError(w, h.log, http.StatusInternalServerError, "reconciliation sweep failed", err)
		return
	}

	h.log.Info("manual reconciliation sweep",
		zap.String("requested_by", string(staff.Kind)),
		zap.Int64("staff_id", staff.ID),
		zap.Int64("quiz_id", quizID))
	writeJSON(w, http.StatusOK, report)
}
