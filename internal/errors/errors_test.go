package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"post not found", ErrPostNotFound, http.StatusNotFound, "POST_NOT_FOUND"},
		{"wrapped reply not found", fmt.Errorf("like reply: %w", ErrReplyNotFound), http.StatusNotFound, "REPLY_NOT_FOUND"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"self vouch", ErrSelfVouch, http.StatusBadRequest, "SELF_VOUCH"},
		{"self rep", ErrSelfRep, http.StatusBadRequest, "SELF_REP"},
		{"duplicate slug", ErrSlugTaken, http.StatusConflict, "SLUG_TAKEN"},
		{"bad token", ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.expectedStatus, httpErr.StatusCode)
			assert.Equal(t, tt.expectedCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_HidesInternalDetails(t *testing.T) {
	httpErr := MapErrorToHTTP(fmt.Errorf("dial tcp 10.0.0.3:3306: connection refused"))
	assert.Equal(t, "internal server error", httpErr.Message)
}

func TestMapErrorToHTTP_KeepsInvalidInputDetail(t *testing.T) {
	httpErr := MapErrorToHTTP(fmt.Errorf("%w: title is required", ErrInvalidInput))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "invalid input: title is required", httpErr.Message)
	assert.Equal(t, ErrorResponse{Error: httpErr.Message, Code: "INVALID_INPUT"}, httpErr.ToErrorResponse())
}
