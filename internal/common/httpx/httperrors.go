package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/coverlane/coverlane/internal/common/apperrors"
)

// Error represents an HTTP error response with status code and description.
type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
}

type errorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

// Failure represents the error result code in error responses.
const Failure int = 0

// Send writes the error response to the provided ResponseWriter.
// If the writer is nil, no action is taken.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rsp := &errorRsp{
		Result: Failure,
		Error:  e.Description,
	}
	rspJson, err := json.Marshal(rsp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("unable to encode error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

// Error returns the error description.
func (e *Error) Error() string {
	return e.Description
}

// Is reports whether the error matches the target error.
func (current Error) Is(other error) bool {
	return current.Error() == other.Error()
}

// SendError sends an application error as an HTTP error response.
// If the error is nil, no action is taken.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	httperror := &Error{
		StatusCode:  statusCode,
		Description: err.ErrorAll(),
	}
	httperror.Send(w)
}

// ErrApplicationError returns a generic internal server error.
func ErrApplicationError(msg ...string) *Error {
	description := "unable to process request"
	if len(msg) > 0 {
		description = msg[0]
	}
	return &Error{
		Description: description,
		StatusCode:  http.StatusInternalServerError,
	}
}

// ErrInvalidRequest returns a bad request error with an optional description.
func ErrInvalidRequest(msg ...string) *Error {
	description := "invalid request"
	if len(msg) > 0 {
		description = msg[0]
	}
	return &Error{
		Description: description,
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrNotFound returns a not found error with an optional description.
func ErrNotFound(msg ...string) *Error {
	description := "not found"
	if len(msg) > 0 {
		description = msg[0]
	}
	return &Error{
		Description: description,
		StatusCode:  http.StatusNotFound,
	}
}

// ErrUnAuthorized returns an unauthorized error with an optional description.
func ErrUnAuthorized(msg ...string) *Error {
	description := "unauthorized"
	if len(msg) > 0 {
		description = msg[0]
	}
	return &Error{
		Description: description,
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrUnableToReadRequest returns an error for unreadable request bodies.
func ErrUnableToReadRequest() *Error {
	return &Error{
		Description: "unable to read request",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrUnableToParseReqData returns an error for malformed request payloads.
func ErrUnableToParseReqData() *Error {
	return &Error{
		Description: "unable to parse request data",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrRequestTooLarge returns an error for request bodies over the
// configured size limit.
func ErrRequestTooLarge() *Error {
	return &Error{
		Description: "request body too large",
		StatusCode:  http.StatusRequestEntityTooLarge,
	}
}

// ErrReqMethodNotSupported returns an error for unsupported request methods.
func ErrReqMethodNotSupported() *Error {
	return &Error{
		Description: "request method not supported",
		StatusCode:  http.StatusMethodNotAllowed,
	}
}
