package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/logging"
)

const maxRequestBodyBytes = 1 << 20

type bookingService interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (application.Booking, error)
	ListBookingsForDate(ctx context.Context, date string) ([]application.BookingSummary, error)
	GetBooking(ctx context.Context, id int64) (application.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	logger = logging.OrDefault(logger)
	return &BookingHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
	}
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "BookingHandler", "Create")

	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, msgBadRequestBody)
		return
	}

	booking, err := h.service.CreateBooking(ctx, req.toInput())
	if err != nil {
		logger.WarnContext(ctx, "create booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "booking created", "booking_id", booking.ID)
	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}

// List handles GET /api/bookings?date=YYYY-MM-DD.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	date := r.URL.Query().Get("date")
	logger := handlerLogger(ctx, h.logger, "BookingHandler", "List", "date", date)

	summaries, err := h.service.ListBookingsForDate(ctx, date)
	if err != nil {
		logger.WarnContext(ctx, "list bookings failed", "error", err, "error_kind", application.ErrorKind(err))
		if errors.Is(err, application.ErrInvalidDateFormat) {
			h.responder.writeError(ctx, w, http.StatusBadRequest, msgInvalidListDate)
			return
		}
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	resp := make([]bookingSummaryDTO, 0, len(summaries))
	for _, summary := range summaries {
		resp = append(resp, toBookingSummaryDTO(summary))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, resp)
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id, ok := parseBookingID(ps)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusNotFound, msgNotFound)
		return
	}

	booking, err := h.service.GetBooking(ctx, id)
	if err != nil {
		if !errors.Is(err, application.ErrNotFound) {
			handlerLogger(ctx, h.logger, "BookingHandler", "Get", "booking_id", id).
				ErrorContext(ctx, "get booking failed", "error", err)
		}
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}

// Delete handles DELETE /api/bookings/:id.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id, ok := parseBookingID(ps)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusNotFound, msgNotFound)
		return
	}
	logger := handlerLogger(ctx, h.logger, "BookingHandler", "Delete", "booking_id", id)

	if err := h.service.DeleteBooking(ctx, id); err != nil {
		logger.WarnContext(ctx, "delete booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "booking deleted")
	h.responder.writeJSON(ctx, w, http.StatusOK, messageResponse{Message: msgDeleted})
}

func parseBookingID(ps httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// createBookingRequest mirrors the POST body. Missing fields decode as empty
// strings and are rejected by the service.
type createBookingRequest struct {
	RoomName  string `json:"room_name"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Purpose   string `json:"purpose"`
}

func (r createBookingRequest) toInput() application.CreateBookingInput {
	return application.CreateBookingInput{
		RoomName:  r.RoomName,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Purpose:   r.Purpose,
	}
}

type bookingDTO struct {
	ID        int64  `json:"id"`
	RoomName  string `json:"room_name"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Purpose   string `json:"purpose"`
}

type bookingSummaryDTO struct {
	ID        int64  `json:"id"`
	RoomName  string `json:"room_name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Purpose   string `json:"purpose"`
}

func toBookingDTO(b application.Booking) bookingDTO {
	return bookingDTO{
		ID:        b.ID,
		RoomName:  b.RoomName,
		Date:      b.Date.Format(application.DateLayout),
		StartTime: b.StartTime.String(),
		EndTime:   b.EndTime.String(),
		Purpose:   b.Purpose,
	}
}

func toBookingSummaryDTO(s application.BookingSummary) bookingSummaryDTO {
	return bookingSummaryDTO{
		ID:        s.ID,
		RoomName:  s.RoomName,
		StartTime: s.StartTime.String(),
		EndTime:   s.EndTime.String(),
		Purpose:   s.Purpose,
	}
}
