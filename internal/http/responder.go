package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/logging"
)

const (
	msgBadRequestBody   = "Dữ liệu gửi lên không hợp lệ."
	msgInvalidDate      = "Ngày không đúng định dạng."
	msgInvalidListDate  = "Sai định dạng ngày"
	msgInvalidTime      = "Giờ không đúng định dạng (HH:MM)."
	msgInvalidTimeRange = "Giờ kết thúc phải sau giờ bắt đầu."
	msgSlotTaken        = "Khung giờ này đã có người đặt rồi!"
	msgNotFound         = "Không tìm thấy đặt phòng"
	msgDeleted          = "Đã xóa đặt phòng"
	msgTimeout          = "Yêu cầu quá thời gian xử lý, vui lòng thử lại."
	msgInternal         = "Lỗi hệ thống, vui lòng thử lại sau."
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: logging.OrDefault(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	if strings.TrimSpace(message) == "" {
		message = localizedStatusMessage(status)
	}
	r.writeJSON(ctx, w, status, errorResponse{Detail: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.loggerFor(ctx).ErrorContext(ctx, "handleServiceError called without error")
		r.writeError(ctx, w, http.StatusInternalServerError, msgInternal)
		return
	}

	switch {
	case errors.Is(err, application.ErrInvalidDateFormat):
		r.writeError(ctx, w, http.StatusBadRequest, msgInvalidDate)
	case errors.Is(err, application.ErrInvalidTimeFormat):
		r.writeError(ctx, w, http.StatusBadRequest, msgInvalidTime)
	case errors.Is(err, application.ErrInvalidTimeRange):
		r.writeError(ctx, w, http.StatusBadRequest, msgInvalidTimeRange)
	case errors.Is(err, application.ErrTimeSlotConflict):
		r.writeError(ctx, w, http.StatusBadRequest, msgSlotTaken)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		r.writeError(ctx, w, http.StatusServiceUnavailable, msgTimeout)
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, validationResponse{Detail: localizeValidationErrors(vErr)})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err, "error_kind", application.ErrorKind(err))
		r.writeError(ctx, w, http.StatusInternalServerError, msgInternal)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return msgBadRequestBody
	case http.StatusNotFound:
		return "Không tìm thấy tài nguyên."
	case http.StatusMethodNotAllowed:
		return "Phương thức không được hỗ trợ."
	case http.StatusServiceUnavailable:
		return msgTimeout
	default:
		return msgInternal
	}
}

func localizeValidationErrors(vErr *application.ValidationError) []validationDetail {
	if vErr == nil {
		return nil
	}

	details := make([]validationDetail, 0, len(vErr.FieldErrors))
	for _, field := range vErr.Fields() {
		details = append(details, validationDetail{
			Loc: []string{"body", field},
			Msg: translateValidationMessage(vErr.FieldErrors[field]),
		})
	}
	return details
}

func translateValidationMessage(message string) string {
	switch message {
	case "room name is required":
		return "Tên phòng là bắt buộc."
	default:
		return message
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type validationDetail struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

type validationResponse struct {
	Detail []validationDetail `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}
