package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/glowbook/appointments/internal/domain"
	"github.com/glowbook/appointments/internal/http/response"
	"github.com/glowbook/appointments/internal/service"
)

type BookingsHandler struct{ Svc service.BookingService }

func NewBookingsHandler(svc service.BookingService) *BookingsHandler {
	return &BookingsHandler{Svc: svc}
}

type requestAccepted struct {
	Status string `json:"status"`
	Email  string `json:"email"`
}

func (h *BookingsHandler) RequestBooking(w http.ResponseWriter, r *http.Request) {
	var in domain.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	// The token travels by email only; the response just tells the caller to
	// check their inbox.
	if _, err := h.Svc.RequestBooking(r.Context(), &in); err != nil {
		writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(requestAccepted{
		Status: "pending_verification",
		Email:  in.Email,
	})
}

func (h *BookingsHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	if tok == "" {
		response.NotFound(w, "missing token")
		return
	}

	appt, err := h.Svc.ConfirmBooking(r.Context(), tok)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(appt)
}

func (h *BookingsHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	limit, offset := 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	as, err := h.Svc.ListAppointments(r.Context(), r.URL.Query().Get("date"), limit, offset)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(as)
}

func writeBookingError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, vErr.Error())
	case errors.Is(err, domain.ErrLinkInvalidOrExpired):
		response.WriteError(w, http.StatusBadRequest,
			"Verification link is invalid or expired.", response.CodeLinkInvalid)
	case errors.Is(err, domain.ErrSlotTaken):
		response.Conflict(w,
			"That time slot has just been taken. Please choose another time.",
			response.CodeSlotTaken)
	case errors.Is(err, domain.ErrAlreadyBookedThisDay):
		response.Conflict(w,
			"You already have an appointment booked for that day. Only one appointment is allowed per day.",
			response.CodeAlreadyBooked)
	case errors.Is(err, domain.ErrCapacityReached):
		response.Conflict(w,
			"Sorry, the maximum number of appointments for this day has been reached. Please choose another day.",
			response.CodeCapacityReached)
	default:
		response.StoreUnavailable(w, "Something went wrong. Try again.")
	}
}
