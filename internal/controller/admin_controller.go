package controller

import (
	"net/http"

	"github.com/emekaobi/shortlet-payments/internal/application/reconcile"
	"github.com/emekaobi/shortlet-payments/internal/application/webhook"
	"github.com/go-chi/chi/v5"
)

// AdminController handles operator endpoints: event replay and the
// out-of-band reconcile trigger.
type AdminController struct {
	replay    *webhook.ReplayUseCase
	scheduler *reconcile.Scheduler
}

// NewAdminController creates a new AdminController.
func NewAdminController(replay *webhook.ReplayUseCase, scheduler *reconcile.Scheduler) *AdminController {
	return &AdminController{replay: replay, scheduler: scheduler}
}

// Replay handles POST /api/v1/admin/events/{eventID}/replay
func (h *AdminController) Replay(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing event id", Code: "invalid_id"})
		return
	}

	resp, err := h.replay.Execute(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReplayResponse{
		RecordedOutcome: string(resp.RecordedOutcome),
		Applied:         resp.Applied,
		PaymentStatus:   string(resp.PaymentStatus),
		BookingStatus:   string(resp.BookingStatus),
	})
}

// TriggerReconcile handles POST /internal/reconcile/run
func (h *AdminController) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.scheduler.RunPass(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileSummaryResponse{
		Scanned:         summary.Scanned,
		Locked:          summary.Locked,
		SkippedTerminal: summary.SkippedTerminal,
		Reconciled:      summary.Reconciled,
		StillPending:    summary.StillPending,
		Errors:          summary.Errors,
	})
}
