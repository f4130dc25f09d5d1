package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrPostNotFound is returned when a post is not found.
	ErrPostNotFound = errors.New("post not found")
	// ErrReplyNotFound is returned when a reply is not found on its post.
	ErrReplyNotFound = errors.New("reply not found")
	// ErrCategoryNotFound is returned when a category is not found.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrForbidden is returned when the caller's role or ownership does not allow the action.
	ErrForbidden = errors.New("not authorized to perform this action")
	// ErrAccountBanned is returned when a banned user tries to act.
	ErrAccountBanned = errors.New("account is banned")
	// ErrUnauthenticated is returned when no valid credential was presented.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned when a token is malformed, expired or revoked.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrSelfVouch is returned when a user tries to vouch for themselves.
	ErrSelfVouch = errors.New("you cannot vouch yourself")
	// ErrSelfRep is returned when a user tries to give reputation to themselves.
	ErrSelfRep = errors.New("you cannot give reputation to yourself")
	// ErrInvalidRole is returned for roles outside the enumeration.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidInput is returned when a request is missing or has invalid fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email is already taken")
	// ErrCustomURLTaken is returned when another user owns the custom URL.
	ErrCustomURLTaken = errors.New("custom URL is already taken")
	// ErrSlugTaken is returned when another category owns the slug.
	ErrSlugTaken = errors.New("category slug is already taken")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrPostNotFound, http.StatusNotFound, "POST_NOT_FOUND"},
	{ErrReplyNotFound, http.StatusNotFound, "REPLY_NOT_FOUND"},
	{ErrCategoryNotFound, http.StatusNotFound, "CATEGORY_NOT_FOUND"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrAccountBanned, http.StatusForbidden, "ACCOUNT_BANNED"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
	{ErrSelfVouch, http.StatusBadRequest, "SELF_VOUCH"},
	{ErrSelfRep, http.StatusBadRequest, "SELF_REP"},
	{ErrInvalidRole, http.StatusBadRequest, "INVALID_ROLE"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
	{ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{ErrCustomURLTaken, http.StatusConflict, "CUSTOM_URL_TAKEN"},
	{ErrSlugTaken, http.StatusConflict, "SLUG_TAKEN"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are
// matched too; the message of a wrapped ErrInvalidInput is kept so the
// caller learns which field failed.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			msg := m.err.Error()
			if m.err == ErrInvalidInput {
				msg = err.Error()
			}
			return NewHTTPError(m.status, msg, m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
