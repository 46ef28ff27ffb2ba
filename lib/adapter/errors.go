package adapter

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	// ErrorKindTransient временная ошибка платформы, операцию можно отправить повторно
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindPermanent платформа отказала окончательно, повтор бесполезен
	ErrorKindPermanent ErrorKind = "permanent"
)

type AdapterError struct {
	Kind    ErrorKind
	Message string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewTransientError(format string, args ...any) *AdapterError {
	return &AdapterError{Kind: ErrorKindTransient, Message: fmt.Sprintf(format, args...)}
}

func NewPermanentError(format string, args ...any) *AdapterError {
	return &AdapterError{Kind: ErrorKindPermanent, Message: fmt.Sprintf(format, args...)}
}

// IsTransient ошибка временная, операция подлежит повторной отправке вызывающей стороной
func IsTransient(err error) bool {
	var aErr *AdapterError
	if errors.As(err, &aErr) {
		return aErr.Kind == ErrorKindTransient
	}
	return false
}
