package error

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuotaExceededCarriesDetails(t *testing.T) {
	reset := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	err := QuotaExceeded("hourly", 100, 100, reset)

	assert.Equal(t, http.StatusTooManyRequests, err.HttpCode())
	assert.Equal(t, QUOTA_EXCEEDED, err.ErrorCode())
	assert.Equal(t, "hourly quota exceeded", err.ErrorDesc())
	assert.Equal(t, "hourly", err.Details()["scope"])
	assert.Equal(t, int64(100), err.Details()["used"])
	assert.Equal(t, int64(100), err.Details()["limit"])
	assert.Equal(t, reset, err.Details()["resetTime"])
}

func TestTaxonomyStatusCodes(t *testing.T) {
	cases := map[string]struct {
		err  *Error
		want int
	}{
		"validation":   {InvalidContent("x"), http.StatusBadRequest},
		"style":        {InvalidStyle("x"), http.StatusBadRequest},
		"unauthorized": {Unauthorized("x"), http.StatusUnauthorized},
		"revoked key":  {UnauthorizedApiKey("x"), http.StatusForbidden},
		"forbidden":    {Forbidden("x"), http.StatusForbidden},
		"not found":    {NotFound("x"), http.StatusNotFound},
		"dependency":   {DatabaseError("x"), http.StatusInternalServerError},
		"encoder":      {EncoderError("x"), http.StatusInternalServerError},
		"timeout":      {ServiceUnavailable("x"), http.StatusServiceUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.HttpCode())
		})
	}
}

func TestFromWrapsForeignErrors(t *testing.T) {
	appErr := NotFound("missing")
	assert.Same(t, appErr, From(appErr))

	wrapped := From(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, wrapped.HttpCode())
	assert.Equal(t, assert.AnError.Error(), wrapped.ErrorDesc())
}
