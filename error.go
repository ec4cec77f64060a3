package bcycle

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Code is an error code that mirrors the http status codes. It can be used to create errors to pass around across
// middleware layers to handle errors structurally.
type Code int

const (
	CodeUnknown                      Code = 0
	CodeBadRequest                   Code = http.StatusBadRequest                   // RFC 9110, 15.5.1
	CodeUnauthorized                 Code = http.StatusUnauthorized                 // RFC 9110, 15.5.2
	CodePaymentRequired              Code = http.StatusPaymentRequired              // RFC 9110, 15.5.3
	CodeForbidden                    Code = http.StatusForbidden                    // RFC 9110, 15.5.4
	CodeNotFound                     Code = http.StatusNotFound                     // RFC 9110, 15.5.5
	CodeMethodNotAllowed             Code = http.StatusMethodNotAllowed             // RFC 9110, 15.5.6
	CodeNotAcceptable                Code = http.StatusNotAcceptable                // RFC 9110, 15.5.7
	CodeProxyAuthRequired            Code = http.StatusProxyAuthRequired            // RFC 9110, 15.5.8
	CodeRequestTimeout               Code = http.StatusRequestTimeout               // RFC 9110, 15.5.9
	CodeConflict                     Code = http.StatusConflict                     // RFC 9110, 15.5.10
	CodeGone                         Code = http.StatusGone                         // RFC 9110, 15.5.11
	CodeLengthRequired               Code = http.StatusLengthRequired               // RFC 9110, 15.5.12
	CodePreconditionFailed           Code = http.StatusPreconditionFailed           // RFC 9110, 15.5.13
	CodeRequestEntityTooLarge        Code = http.StatusRequestEntityTooLarge        // RFC 9110, 15.5.14
	CodeRequestURITooLong            Code = http.StatusRequestURITooLong            // RFC 9110, 15.5.15
	CodeUnsupportedMediaType         Code = http.StatusUnsupportedMediaType         // RFC 9110, 15.5.16
	CodeRequestedRangeNotSatisfiable Code = http.StatusRequestedRangeNotSatisfiable // RFC 9110, 15.5.17
	CodeExpectationFailed            Code = http.StatusExpectationFailed            // RFC 9110, 15.5.18
	CodeTeapot                       Code = http.StatusTeapot                       // RFC 9110, 15.5.19 (Unused)
	CodeMisdirectedRequest           Code = http.StatusMisdirectedRequest           // RFC 9110, 15.5.20
	CodeUnprocessableEntity          Code = http.StatusUnprocessableEntity          // RFC 9110, 15.5.21
	CodeLocked                       Code = http.StatusLocked                       // RFC 4918, 11.3
	CodeFailedDependency             Code = http.StatusFailedDependency             // RFC 4918, 11.4
	CodeTooEarly                     Code = http.StatusTooEarly                     // RFC 8470, 5.2.
	CodeUpgradeRequired              Code = http.StatusUpgradeRequired              // RFC 9110, 15.5.22
	CodePreconditionRequired         Code = http.StatusPreconditionRequired         // RFC 6585, 3
	CodeTooManyRequests              Code = http.StatusTooManyRequests              // RFC 6585, 4
	CodeRequestHeaderFieldsTooLarge  Code = http.StatusRequestHeaderFieldsTooLarge  // RFC 6585, 5
	CodeUnavailableForLegalReasons   Code = http.StatusUnavailableForLegalReasons   // RFC 7725, 3

	CodeInternalServerError           Code = http.StatusInternalServerError           // RFC 9110, 15.6.1
	CodeNotImplemented                Code = http.StatusNotImplemented                // RFC 9110, 15.6.2
	CodeBadGateway                    Code = http.StatusBadGateway                    // RFC 9110, 15.6.3
	CodeServiceUnavailable            Code = http.StatusServiceUnavailable            // RFC 9110, 15.6.4
	CodeGatewayTimeout                Code = http.StatusGatewayTimeout                // RFC 9110, 15.6.5
	CodeHTTPVersionNotSupported       Code = http.StatusHTTPVersionNotSupported       // RFC 9110, 15.6.6
	CodeVariantAlsoNegotiates         Code = http.StatusVariantAlsoNegotiates         // RFC 2295, 8.1
	CodeInsufficientStorage           Code = http.StatusInsufficientStorage           // RFC 4918, 11.5
	CodeLoopDetected                  Code = http.StatusLoopDetected                  // RFC 5842, 7.2
	CodeNotExtended                   Code = http.StatusNotExtended                   // RFC 2774, 7
	CodeNetworkAuthenticationRequired Code = http.StatusNetworkAuthenticationRequired // RFC 6585, 6
)

// Sentinel errors.
var (
	// ErrSkip aborts the current handler silently. The exception mapper does nothing for it.
	ErrSkip = errors.New("bcycle: skip")
	// ErrFutureInFlight is returned when a future is set while another one is unresolved.
	ErrFutureInFlight = errors.New("bcycle: cannot set a future while another future is unresolved")
	// ErrFutureCancelled is the result of a cancelled future.
	ErrFutureCancelled = errors.New("bcycle: future cancelled")
	// ErrDuplicateRoute is returned when a (type, path) pair is registered twice.
	ErrDuplicateRoute = errors.New("bcycle: duplicate route")
	// ErrBodyTooLarge is returned when a request body exceeds the configured maximum.
	ErrBodyTooLarge = errors.New("bcycle: request body too large")
	// ErrRequestEnded is returned when a future is set after the request timed out or finished.
	ErrRequestEnded = errors.New("bcycle: request already timed out or finished")
)

// Error describes an http error. It carries the status code, a client facing message
// and optional structured details.
type Error struct {
	code    Code
	msg     string
	details map[string]string
	err     error
}

// NewError inits a new error given the error code. The message defaults to the
// standard status text.
func NewError(c Code, underlying error) *Error {
	return &Error{code: c, msg: http.StatusText(int(c)), err: underlying}
}

// NewErrorMessage inits an error with an explicit client facing message.
func NewErrorMessage(c Code, msg string, details map[string]string) *Error {
	return &Error{code: c, msg: msg, details: details}
}

func (e *Error) Code() Code                 { return e.code }
func (e *Error) Message() string            { return e.msg }
func (e *Error) Details() map[string]string { return e.details }
func (e *Error) Unwrap() error              { return e.err }

func (e *Error) Error() string {
	status := http.StatusText(int(e.Code()))
	if status == "" {
		status = "Unknown"
	}

	switch {
	case e.err != nil:
		return status + ": " + e.err.Error()
	case e.msg != "" && e.msg != status:
		return status + ": " + e.msg
	default:
		return status
	}
}

// WithDetail returns a copy of e with the detail key set.
func (e *Error) WithDetail(key, val string) *Error {
	cp := *e
	cp.details = make(map[string]string, len(e.details)+1)
	for k, v := range e.details {
		cp.details[k] = v
	}
	cp.details[key] = val
	return &cp
}

func BadRequest(msg string) *Error { return NewErrorMessage(CodeBadRequest, msg, nil) }
func Unauthorized(msg string) *Error {
	return NewErrorMessage(CodeUnauthorized, msg, nil)
}
func Forbidden(msg string) *Error { return NewErrorMessage(CodeForbidden, msg, nil) }
func NotFound(msg string) *Error  { return NewErrorMessage(CodeNotFound, msg, nil) }
func Conflict(msg string) *Error  { return NewErrorMessage(CodeConflict, msg, nil) }

// MethodNotAllowed creates a 405 error listing the allowed methods as details.
func MethodNotAllowed(msg string, allowed []string) *Error {
	details := make(map[string]string, len(allowed))
	for _, m := range allowed {
		details[m] = "allowed"
	}
	return NewErrorMessage(CodeMethodNotAllowed, msg, details)
}

func InternalServerError(msg string) *Error {
	return NewErrorMessage(CodeInternalServerError, msg, nil)
}
func ServiceUnavailable(msg string) *Error {
	return NewErrorMessage(CodeServiceUnavailable, msg, nil)
}

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	if herr, ok := asError(err); ok {
		return herr.Code()
	}
	return CodeUnknown
}

// asError uses errors.As to unwrap any error and look for an *Error.
func asError(err error) (*Error, bool) {
	var herr *Error
	ok := errors.As(err, &herr)
	return herr, ok
}

// CompletionError wraps the failure of an asynchronous result.
type CompletionError struct {
	Cause error
}

func (e *CompletionError) Error() string { return "bcycle: future failed: " + e.Cause.Error() }
func (e *CompletionError) Unwrap() error { return e.Cause }
