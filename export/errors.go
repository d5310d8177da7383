package export

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines export error kinds.
type ErrorKind string

const (
	KindSurfaceUnavailable ErrorKind = "surface_unavailable"
	KindCapture            ErrorKind = "capture_failed"
	KindEncoding           ErrorKind = "encoding_failed"
	KindWrite              ErrorKind = "write_failed"
	KindValidation         ErrorKind = "validation"
	KindBusy               ErrorKind = "busy"
	KindNotFound           ErrorKind = "not_found"
	KindTimeout            ErrorKind = "timeout"
	KindCanceled           ErrorKind = "canceled"
	KindInternal           ErrorKind = "internal"
	KindNotImpl            ErrorKind = "not_implemented"
)

var knownKinds = map[ErrorKind]ErrorKind{
	KindSurfaceUnavailable: KindSurfaceUnavailable,
	KindCapture:            KindCapture,
	KindEncoding:           KindEncoding,
	KindWrite:              KindWrite,
	KindValidation:         KindValidation,
	KindBusy:               KindBusy,
	KindNotFound:           KindNotFound,
	KindTimeout:            KindTimeout,
	KindCanceled:           KindCanceled,
	KindInternal:           KindInternal,
	KindNotImpl:            KindNotImpl,
}

// ExportError wraps errors with a kind.
type ExportError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewError creates a new export error.
func NewError(kind ErrorKind, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Msg: msg, Err: err}
}

// wrapKind keeps an existing export error kind and only wraps foreign errors.
func wrapKind(kind ErrorKind, msg string, err error) error {
	if err == nil {
		return nil
	}
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, msg, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(KindCanceled, msg, err)
	}
	return NewError(kind, msg, err)
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var exportErr *ExportError
	if errors.As(err, &exportErr) && exportErr.Msg != "" {
		msg = exportErr.Msg
	}

	switch kind {
	case KindValidation:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("validation")
	case KindNotFound:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode("not_found")
	case KindSurfaceUnavailable:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("surface_unavailable")
	case KindCapture:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("capture_failed")
	case KindEncoding:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("encoding_failed")
	case KindWrite:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("write_failed")
	case KindBusy:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("busy")
	case KindTimeout:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("timeout")
	case KindCanceled:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("canceled")
	case KindNotImpl:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("not_implemented")
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
}

// KindFromError maps an error to its export error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		if kind, ok := knownKinds[ErrorKind(ge.TextCode)]; ok {
			return kind
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}

// IsExportFailure reports whether err belongs to the capture/encode/write family
// that callers surface as a generic "try a simpler document" message.
func IsExportFailure(err error) bool {
	switch KindFromError(err) {
	case KindCapture, KindEncoding, KindWrite:
		return true
	default:
		return false
	}
}
