package controller

import (
	"net/http"
	"time"

	appBooking "github.com/emekaobi/shortlet-payments/internal/application/booking"
	"github.com/emekaobi/shortlet-payments/internal/application/checkout"
	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BookingController handles booking intake, checkout and status reads.
type BookingController struct {
	createBooking *appBooking.CreateBookingUseCase
	decideBooking *appBooking.DecideBookingUseCase
	initCheckout  *checkout.InitializeCheckoutUseCase
	getStatus     *checkout.GetStatusUseCase
}

// NewBookingController creates a new BookingController.
func NewBookingController(
	createBooking *appBooking.CreateBookingUseCase,
	decideBooking *appBooking.DecideBookingUseCase,
	initCheckout *checkout.InitializeCheckoutUseCase,
	getStatus *checkout.GetStatusUseCase,
) *BookingController {
	return &BookingController{
		createBooking: createBooking,
		decideBooking: decideBooking,
		initCheckout:  initCheckout,
		getStatus:     getStatus,
	}
}

// Create handles POST /api/v1/bookings
func (h *BookingController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	checkIn, err := time.Parse(time.RFC3339, req.CheckIn)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "check_in must be RFC3339", Code: "validation_error"})
		return
	}
	checkOut, err := time.Parse(time.RFC3339, req.CheckOut)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "check_out must be RFC3339", Code: "validation_error"})
		return
	}

	b, err := h.createBooking.Execute(r.Context(), appBooking.CreateBookingRequest{
		PropertyID: uuid.MustParse(req.PropertyID),
		GuestID:    uuid.MustParse(req.GuestID),
		HostID:     uuid.MustParse(req.HostID),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		TotalMinor: req.TotalMinor,
		Currency:   req.Currency,
		Mode:       booking.Mode(req.Mode),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromBooking(b))
}

// Checkout handles POST /api/v1/bookings/{id}/checkout
func (h *BookingController) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid booking id", Code: "invalid_id"})
		return
	}

	var req CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.initCheckout.Execute(r.Context(), checkout.InitializeCheckoutRequest{
		BookingID:     id,
		Provider:      req.Provider,
		CustomerEmail: req.CustomerEmail,
		CallbackURL:   req.CallbackURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CheckoutResponse{
		Intent:      FromIntent(resp.Intent),
		CheckoutURL: resp.CheckoutURL,
		AccessToken: resp.AccessToken,
	})
}

// Status handles GET /api/v1/bookings/{id}/status
func (h *BookingController) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid booking id", Code: "invalid_id"})
		return
	}

	resp, err := h.getStatus.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	out := StatusResponse{
		Booking: FromBooking(resp.Booking),
		State:   resp.PresentationState,
	}
	if resp.Intent != nil {
		out.Payment = FromIntent(resp.Intent)
	}
	writeJSON(w, http.StatusOK, out)
}

// Decide handles POST /api/v1/bookings/{id}/decision
func (h *BookingController) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid booking id", Code: "invalid_id"})
		return
	}

	var req HostDecisionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	b, err := h.decideBooking.Execute(r.Context(), appBooking.DecideBookingRequest{
		BookingID: id,
		HostID:    uuid.MustParse(req.HostID),
		Decision:  appBooking.Decision(req.Decision),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromBooking(b))
}
