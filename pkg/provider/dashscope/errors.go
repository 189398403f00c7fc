package dashscope

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4096

// drainLimit bounds how much of an unread error body is discarded so the
// connection can be reused.
const drainLimit = 64 << 10

// mapHTTPError converts a non-2xx response into a transport error carrying
// the status code and the vendor message when one can be read. The rest of
// the body is drained.
func mapHTTPError(resp *http.Response) *api.APIError {
	message := extractErrorMessage(resp.Body)
	if resp.Body != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	}
	if message == "" {
		message = fmt.Sprintf("dashscope returned HTTP %d", resp.StatusCode)
	}
	return api.NewTransportError(resp.StatusCode, message)
}

// mapNetworkError converts a network-level error (connection refused,
// timeout, DNS resolution failure) into a transport error.
func mapNetworkError(err error) *api.APIError {
	return api.NewTransportError(0, fmt.Sprintf("dashscope connection error: %s", err.Error()))
}

// extractErrorMessage reads at most maxErrorBody bytes and returns the
// vendor error message if the body carries one.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return ""
	}
	if errResp.Error != nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	if errResp.Message != "" {
		if errResp.Code != "" {
			return errResp.Code + ": " + errResp.Message
		}
		return errResp.Message
	}
	return ""
}
