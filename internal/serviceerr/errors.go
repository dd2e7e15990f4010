package serviceerr

import "net/http"

// Code is a machine readable error code.
type Code string

const (
	CodeInvalidRequest      Code = "invalid_request"
	CodeStateMismatch       Code = "state_mismatch"
	CodeTokenExchangeFailed Code = "token_exchange_failed"
	CodeInvalidCSRFToken    Code = "invalid_csrf_token"
	CodeNotFound            Code = "not_found"
)

// Error is an error which is safe to expose to the caller. The Description
// is sent as the plain text response body.
type Error struct {
	Err         Code
	Description string
}

var (
	ErrMissingState     = &Error{Err: CodeInvalidRequest, Description: "Missing state parameter."}
	ErrMissingCode      = &Error{Err: CodeInvalidRequest, Description: "Missing authorization code."}
	ErrStateMismatch    = &Error{Err: CodeStateMismatch, Description: "State mismatch, aborting."}
	ErrInvalidCSRFToken = &Error{Err: CodeInvalidCSRFToken, Description: "CSRF verification failed. Request aborted."}
	ErrNotFound         = &Error{Err: CodeNotFound, Description: "not found"}
)

// TokenExchangeFailed returns the error reported when the token endpoint
// answers with a non-2xx status. The upstream body is kept as diagnostic text.
func TokenExchangeFailed(body string) *Error {
	return &Error{Err: CodeTokenExchangeFailed, Description: "Token exchange failed: " + body}
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest, CodeStateMismatch, CodeTokenExchangeFailed:
		return http.StatusBadRequest
	case CodeInvalidCSRFToken:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
