package views

import "errors"

// ErrNotFound is matched (through errors.Is) by every error reporting that a
// view, layout or partial file could not be resolved.
var ErrNotFound = errors.New("template not found")

// NotFoundError is returned when no candidate file exists for a requested
// template. Path is the path that was asked for, before any extension was
// probed.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "could not find template file: " + e.Path
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// HTTPError is produced by the request adapter when a render fails. Code is
// the status that should be sent to the client.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
