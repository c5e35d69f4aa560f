package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Armandase/seconde-main/pkg/errors"
)

// DownstreamErrorResponse mirrors the httputil error envelope so structured
// error bodies from downstream calls keep their code and message.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx response and translates it
// into an error carrying the same semantics. The body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	return mapDownstreamError(resp.StatusCode, "", string(bodyBytes), serviceName)
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	var sentinel error
	switch {
	case status == http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
		if code == "" {
			code = "NOT_FOUND"
		}
	case IsClientError(status):
		sentinel = apperrors.ErrInvalidInput
		if code == "" {
			code = "INVALID_INPUT"
		}
	case status >= 500:
		sentinel = apperrors.ErrServiceUnavail
		if code == "" {
			code = "DOWNSTREAM_ERROR"
		}
	default:
		if code == "" {
			code = "UNEXPECTED_STATUS"
		}
		sentinel = fmt.Errorf("unexpected status %d", status)
	}

	return &apperrors.AppError{
		Code:    code,
		Message: qualifiedMsg,
		Status:  status,
		Err:     sentinel,
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors are not retried: the same request would fail again.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

// IsUnavailable reports whether err means the downstream could not serve the
// request, either because it answered 5xx or because the breaker is open.
func IsUnavailable(err error) bool {
	return errors.Is(err, apperrors.ErrServiceUnavail) || errors.Is(err, ErrCircuitOpen)
}
