package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/ecopickup/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusCodes gives errors written with jsonError a code clients can
// switch on.
var statusCodes = map[int]string{
	http.StatusBadRequest:          model.CodeBadRequest,
	http.StatusUnauthorized:        model.CodeUnauthorized,
	http.StatusForbidden:           model.CodeForbidden,
	http.StatusNotFound:            model.CodeNotFound,
	http.StatusConflict:            model.CodeConflict,
	http.StatusInternalServerError: model.CodeInternal,
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message, Code: statusCodes[status]})
}

// lifecycleError writes err using the lifecycle error taxonomy. Anything
// outside it is logged and reported as an internal error.
func lifecycleError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusConflict
	default:
		slog.Error("request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, status, errorResponse{Error: err.Error(), Code: model.ErrorCode(err)})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
