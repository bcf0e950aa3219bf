package domain

import (
	"errors"
	"fmt"
)

// ErrorKind стабильный машиночитаемый тип ошибки
type ErrorKind string

const (
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindBusinessRule  ErrorKind = "BUSINESS_RULE_VIOLATION"
	KindValidation    ErrorKind = "VALIDATION_ERROR"
	KindForbidden     ErrorKind = "FORBIDDEN"
	KindInternalError ErrorKind = "INTERNAL_ERROR"
)

// Error ошибка предметной области
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is позволяет сравнивать с sentinel-значениями через errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrBusinessRule = &Error{Kind: KindBusinessRule}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func BusinessRule(format string, args ...any) error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock нарушение правила: запрошено больше, чем есть на складе
func InsufficientStock(productName string, available, requested int) error {
	return &Error{
		Kind:    KindBusinessRule,
		Message: fmt.Sprintf("insufficient stock for %q: available %d, requested %d", productName, available, requested),
		Details: map[string]any{
			"product":   productName,
			"available": available,
			"requested": requested,
		},
	}
}

// KindOf возвращает тип ошибки; всё, что не является *Error, считается внутренней ошибкой
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternalError
}
