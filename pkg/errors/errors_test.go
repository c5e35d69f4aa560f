package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidInput, ErrInternal, ErrServiceUnavail}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "product not found"}
	assert.Equal(t, "NOT_FOUND: product not found", appErr.Error())
}

func TestNotFound(t *testing.T) {
	err := NotFound("product", "product-7")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Contains(t, err.Message, "product-7")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidParameter(t *testing.T) {
	err := InvalidParameter("minPrice", "must be a valid number")
	assert.Equal(t, "INVALID_PARAMETER", err.Code)
	assert.Equal(t, "minPrice must be a valid number", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStoreUnavailable_KeepsCauseAndSentinel(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := StoreUnavailable("elasticsearch", cause)

	assert.Equal(t, "STORE_UNAVAILABLE", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("bad"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped invalid", fmt.Errorf("parse: %w", ErrInvalidInput), http.StatusBadRequest},
		{"unavailable", fmt.Errorf("search: %w", ErrServiceUnavail), http.StatusInternalServerError},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", Code(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Equal(t, "INVALID_INPUT", Code(fmt.Errorf("x: %w", ErrInvalidInput)))
	assert.Equal(t, "STORE_UNAVAILABLE", Code(fmt.Errorf("x: %w", ErrServiceUnavail)))
	assert.Equal(t, "INTERNAL_ERROR", Code(fmt.Errorf("x")))
	assert.Equal(t, "INVALID_PARAMETER", Code(InvalidParameter("page", "must be an integer")))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "get product")
	assert.Equal(t, "get product: resource not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}
