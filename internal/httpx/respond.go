package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harvestly/farmstand-service/internal/apperrors"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		log.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, apperrors.CodeInternal, "internal server error")
		return
	}

	status := statusOf(appErr.Code)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", string(appErr.Code)), zap.Error(err))
	}
	writeError(w, status, appErr.Code, appErr.Message)
}

func writeError(w http.ResponseWriter, status int, code apperrors.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &errorBody{Code: string(code), Message: message},
	})
}

func statusOf(code apperrors.Code) int {
	switch code {
	case apperrors.CodeValidation, apperrors.CodeInvalidQuantity:
		return http.StatusBadRequest
	case apperrors.CodeAuthorization:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInsufficientStock, apperrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads the request body into dst, rejecting malformed payloads.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("invalid request body: %v", err)
	}
	return nil
}
