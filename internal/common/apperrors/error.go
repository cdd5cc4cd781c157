// Package apperrors provides the application error type used across the service.
// It extends the standard error interface with error chaining, HTTP status codes,
// and message customization while remaining compatible with errors.Is / errors.As.
package apperrors

// Error defines the interface for application errors. All methods return Error to
// support method chaining. Errors created from an existing Error inherit its status
// code unless overridden.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
