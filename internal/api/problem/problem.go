package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/json"

// InternalMessage is the only message clients ever see for a server fault.
const InternalMessage = "Неизвестная ошибка!"

const defaultNotFoundMessage = "Не найдено!"

type Code string

const (
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeInternal        Code = "INTERNAL_SERVER_ERROR"
)

func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ValidationErrors is the flattened per-field breakdown of a rejected input.
type ValidationErrors struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// First returns the first form error, or the first message of the first
// field in declaration order when order is supplied.
func (v *ValidationErrors) First(order []string) string {
	if v == nil {
		return ""
	}
	if len(v.FormErrors) > 0 {
		return v.FormErrors[0]
	}
	for _, field := range order {
		if msgs := v.FieldErrors[field]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	for _, msgs := range v.FieldErrors {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// Error is a rejection that crosses the API boundary.
type Error struct {
	Code              Code
	Message           string
	Cause             error
	Validation        *ValidationErrors
	AdminUnauthorized bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func BadInput(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// NotFound with an empty message renders the generic "not found" text.
func NotFound(message string) *Error {
	if message == "" {
		message = defaultNotFoundMessage
	}
	return &Error{Code: CodeNotFound, Message: message}
}

func TooManyRequests(message string) *Error {
	return &Error{Code: CodeTooManyRequests, Message: message}
}

func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: InternalMessage, Cause: cause}
}

// Invalid is a BadInput carrying a field breakdown. The message is the first
// offending field's message.
func Invalid(v *ValidationErrors, order []string) *Error {
	msg := v.First(order)
	if msg == "" {
		msg = "Неверный ввод!"
	}
	return &Error{Code: CodeBadRequest, Message: msg, Validation: v}
}

func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// AsAdminUnauthorized tags the rejection so the frontend drops its session.
func (e *Error) AsAdminUnauthorized() *Error {
	e.AdminUnauthorized = true
	return e
}

// From converts any error into an *Error. Errors that are not already an
// *Error become Internal.
func From(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Code == CodeInternal {
			pe.Message = InternalMessage
		}
		return pe
	}
	return Internal(err)
}

type Meta struct {
	AdminUnauthorized bool `json:"adminUnauthorized"`
}

type EnvelopeData struct {
	Code             Code              `json:"code"`
	HTTPStatus       int               `json:"httpStatus"`
	Path             string            `json:"path"`
	ValidationErrors *ValidationErrors `json:"validationErrors"`
	Meta             Meta              `json:"meta"`
}

type Envelope struct {
	Code    Code         `json:"code"`
	Message string       `json:"message"`
	Data    EnvelopeData `json:"data"`
}

func NewEnvelope(e *Error, path string) Envelope {
	return Envelope{
		Code:    e.Code,
		Message: e.Message,
		Data: EnvelopeData{
			Code:             e.Code,
			HTTPStatus:       e.Code.HTTPStatus(),
			Path:             path,
			ValidationErrors: e.Validation,
			Meta:             Meta{AdminUnauthorized: e.AdminUnauthorized},
		},
	}
}

// Write renders err as the error envelope. path names the procedure; when
// empty the request path is used.
func Write(w http.ResponseWriter, r *http.Request, path string, err error) {
	pe := From(err)
	if path == "" && r != nil {
		path = r.URL.Path
	}
	status := pe.Code.HTTPStatus()

	if r != nil {
		logger := zerolog.Ctx(r.Context())
		if status >= 500 {
			logger.Error().
				Err(pe.Cause).
				Int("status", status).
				Str("procedure", path).
				Str("method", r.Method).
				Msg("procedure failed")
		} else {
			logger.Debug().
				Err(pe.Cause).
				Int("status", status).
				Str("code", string(pe.Code)).
				Str("procedure", path).
				Msg(pe.Message)
		}
	}

	WriteEnvelope(w, status, NewEnvelope(pe, path))
}

func WriteEnvelope(w http.ResponseWriter, status int, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		fallback := fmt.Sprintf(`{"code":%q,"message":%q}`, CodeInternal, InternalMessage)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
