package services

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("production order not found")
	ErrReminderNotFound = errors.New("cleaning reminder not found")
	ErrStageConflict    = errors.New("order is not at the expected stage")
	ErrTimerRunning     = errors.New("stage timer is already running")
	ErrTimerNotRunning  = errors.New("stage timer is not running")
)

// ValidationError - действие отклонено, состояние не изменено.
// Detail содержит конкретную подсказку для оператора ("need 12.3% more").
type ValidationError struct {
	Message string
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

func newValidationError(message, detailFormat string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: message, Detail: fmt.Sprintf(detailFormat, args...)}
}

func errReminderAlreadyResponded() *ValidationError {
	return &ValidationError{Message: "reminder already responded"}
}

// IsValidationError проверяет, является ли ошибка (или обернутая) ValidationError
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// PersistenceError - хранилище отклонило операцию или недоступно
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// persistErr оборачивает ошибку хранилища, не трогая доменные sentinel-ошибки
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrReminderNotFound) || errors.Is(err, ErrStageConflict) || IsValidationError(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
