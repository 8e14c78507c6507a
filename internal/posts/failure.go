package posts

import (
	"errors"
	"fmt"
	"strconv"
)

type FailureKind string

const (
	KindHTTP         FailureKind = "HttpError"
	KindInvalidInput FailureKind = "InvalidInput"
	KindDecode       FailureKind = "DecodeError"
)

// Failure is the single error shape returned by the client for anything the
// remote service or the caller got wrong. Transport errors are not Failures.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	StatusText string
	Input      string
	Err        error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case KindHTTP:
		return fmt.Sprintf("posts: %s (%s)", f.Kind, f.StatusText)
	case KindInvalidInput:
		return fmt.Sprintf("posts: %s: %q is not a post id", f.Kind, f.Input)
	default:
		if f.Err != nil {
			return fmt.Sprintf("posts: %s: %v", f.Kind, f.Err)
		}
		return fmt.Sprintf("posts: %s", f.Kind)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newHTTPFailure(statusCode int) *Failure {
	return &Failure{
		Kind:       KindHTTP,
		StatusCode: statusCode,
		StatusText: "Code: " + strconv.Itoa(statusCode),
	}
}

func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

func IsKind(err error, kind FailureKind) bool {
	failure, ok := AsFailure(err)
	return ok && failure.Kind == kind
}

// IsHTTPFailure reports whether err is an HTTP failure with the given status.
// A zero status matches any HTTP failure.
func IsHTTPFailure(err error, statusCode int) bool {
	failure, ok := AsFailure(err)
	if !ok || failure.Kind != KindHTTP {
		return false
	}
	return statusCode == 0 || failure.StatusCode == statusCode
}
