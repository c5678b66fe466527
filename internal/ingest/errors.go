// internal/ingest/errors.go
package ingest

import "errors"

var (
	// ErrMisconfigured — на сервере не задан админ-пасскод. Это ошибка
	// конфигурации (500), а не ошибка входных данных.
	ErrMisconfigured = errors.New("Server misconfigured: ADMIN_PASSCODE missing.")

	// ErrUnauthorized — пасскод не совпал.
	ErrUnauthorized = errors.New("Invalid passcode.")
)

// ValidationError — отказ по полям или формату. Текст показывается
// пользователю дословно.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

var (
	ErrMissingCategories = &ValidationError{Reason: "At least one category row is required."}
	ErrInvalidRate       = &ValidationError{Reason: "cashback_rate must be a number."}
)
