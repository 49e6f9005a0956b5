package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independently of its message.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindFetchFailed
	KindImageProcessing
	KindBodyTooLarge
	KindNotFound
	KindMethodNotAllowed
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindFetchFailed:
		return "fetch_failed"
	case KindImageProcessing:
		return "image_processing"
	case KindBodyTooLarge:
		return "body_too_large"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// AppError represents an error that can be returned to clients
type AppError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Kind       Kind   `json:"-"`
	underlying error
}

func (e *AppError) Error() string {
	if e.underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.underlying)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.underlying
}

// Is reports whether target is an AppError of the same kind, so a wrapped
// error still matches its sentinel with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind == KindUnknown {
		return e == t
	}
	return e.Kind == t.Kind
}

// WriteJSON writes the error as JSON to the response.
// For base errors (no details/requestID), uses pre-serialized JSON to avoid allocations.
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	if pre, ok := preSerialized[e]; ok {
		w.Write(pre)
		return
	}
	json.NewEncoder(w).Encode(e)
}

// Common errors
var (
	ErrInvalidURL = &AppError{
		Code:    http.StatusBadRequest,
		Message: "Invalid URL",
		Kind:    KindInvalidInput,
	}

	ErrFetchFailed = &AppError{
		Code:    http.StatusBadRequest,
		Message: "Failed to fetch URL",
		Kind:    KindFetchFailed,
	}

	ErrImageProcessing = &AppError{
		Code:    http.StatusInternalServerError,
		Message: "Failed to process image",
		Kind:    KindImageProcessing,
	}

	ErrBodyTooLarge = &AppError{
		Code:    http.StatusBadGateway,
		Message: "Response body too large to cache",
		Kind:    KindBodyTooLarge,
	}

	ErrNotFound = &AppError{
		Code:    http.StatusNotFound,
		Message: "Not Found",
		Kind:    KindNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:    http.StatusMethodNotAllowed,
		Message: "Method Not Allowed",
		Kind:    KindMethodNotAllowed,
	}

	ErrInternalServer = &AppError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Kind:    KindInternal,
	}
)

// preSerialized holds JSON-encoded bytes for base error singletons.
var preSerialized map[*AppError][]byte

func init() {
	bases := []*AppError{
		ErrInvalidURL, ErrFetchFailed, ErrImageProcessing, ErrBodyTooLarge,
		ErrNotFound, ErrMethodNotAllowed, ErrInternalServer,
	}
	preSerialized = make(map[*AppError][]byte, len(bases))
	for _, e := range bases {
		b, _ := json.Marshal(e)
		b = append(b, '\n') // match json.Encoder behavior
		preSerialized[e] = b
	}
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap returns a copy of e carrying err as its cause.
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    e.Details,
		RequestID:  e.RequestID,
		Kind:       e.Kind,
		underlying: err,
	}
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    details,
		RequestID:  e.RequestID,
		Kind:       e.Kind,
		underlying: e.underlying,
	}
}

// WithRequestID adds a request ID to the error
func (e *AppError) WithRequestID(requestID string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    e.Details,
		RequestID:  requestID,
		Kind:       e.Kind,
		underlying: e.underlying,
	}
}

// As returns the first AppError in err's chain, or ErrInternalServer wrapping
// err when there is none.
func As(err error) *AppError {
	for cur := err; cur != nil; {
		if ae, ok := cur.(*AppError); ok {
			return ae
		}
		u, ok := cur.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cur = u.Unwrap()
	}
	return ErrInternalServer.Wrap(err)
}
