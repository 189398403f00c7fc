package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Upstream failures (transport, decode, comparison) surface as 502.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeTransport, api.ErrorTypeDecode, api.ErrorTypeComparisonFailed:
		return http.StatusBadGateway
	case api.ErrorTypeConfiguration, api.ErrorTypeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api. It sets the Content-Type header and writes
// the HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError normalises err with api.AsAPIError and writes it.
func WriteError(w http.ResponseWriter, err error) {
	WriteAPIError(w, api.AsAPIError(err))
}

// WriteJSON writes v as a JSON body with the given status. A value that
// cannot be encoded is reported as a server error instead.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		WriteAPIError(w, api.NewServerError("failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
