package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/fmuoria/nexushire/internal/errors"
	"go.uber.org/zap"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError renders err. Errors without an AppError in their chain are
// logged and reported as a generic internal error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal("An internal server error occurred", err)
	}
	if appErr.Kind == apperrors.KindInternal {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	respondJSON(w, appErr.StatusCode(), ErrorResponse{Error: ErrorBody{Code: appErr.Code, Message: appErr.Message}})
}
