package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind классифицирует ошибку для маппинга в HTTP-статус.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAccessDenied
	KindInvalidInput
	KindUnauthenticated
	KindUpstream
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAccessDenied:
		return "AccessDenied"
	case KindInvalidInput:
		return "InvalidInput"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindUpstream:
		return "Upstream"
	case KindTimeout:
		return "Timeout"
	}
	return "Internal"
}

// Error — ошибка приложения.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error     { return New(KindNotFound, message, nil) }
func AccessDenied(message string) *Error { return New(KindAccessDenied, message, nil) }
func Invalid(message string) *Error      { return New(KindInvalidInput, message, nil) }
func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message, nil)
}

func Upstream(message string, err error) *Error { return New(KindUpstream, message, err) }

// KindOf определяет класс ошибки. Истёкший дедлайн запроса считается
// транзиентной ошибкой (Timeout), её можно повторить.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status возвращает HTTP-статус для ошибки.
func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindAccessDenied:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindTimeout:
		return http.StatusServiceUnavailable
	case KindUpstream:
		var connErr *pgconn.ConnectError
		if errors.As(err, &connErr) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// PublicMessage — текст ошибки, который можно отдать клиенту.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if KindOf(err) == KindTimeout {
		return "request timed out"
	}
	return "internal server error"
}

// Upstreamf оборачивает ошибку хранилища в Upstream, если она ещё не классифицирована.
func Upstreamf(err error, message string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return Upstream(message, err)
}
