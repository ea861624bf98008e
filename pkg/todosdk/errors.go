package todosdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Error codes carried in ErrorResponse.Error.
const (
	ErrorCodeInvalidInput    = "invalid_input"
	ErrorCodeUnauthenticated = "unauthenticated"
	ErrorCodeForbidden       = "forbidden"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeConflict        = "conflict"
	ErrorCodeRateLimited     = "rate_limit_exceeded"
	ErrorCodeInternal        = "internal_error"
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string

	// Fields holds per-field validation messages for invalid_input errors
	Fields map[string]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, e.Code)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

// StatusCode returns the HTTP status of err when it is an *APIError, and 0
// otherwise.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsUnauthenticated(err error) bool { return StatusCode(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool       { return StatusCode(err) == http.StatusForbidden }
func IsNotFound(err error) bool        { return StatusCode(err) == http.StatusNotFound }
func IsConflict(err error) bool        { return StatusCode(err) == http.StatusConflict }

// parseErrorResponse turns an error reply into an *APIError. Bodies that are
// not an ErrorResponse still yield an error carrying the status code.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Error
		apiErr.Description = errResp.ErrorDescription
		apiErr.Fields = errResp.Fields
		return apiErr
	}

	apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
	apiErr.Description = strings.TrimSpace(string(body))
	return apiErr
}
