package service

import (
	"errors"
	"fmt"
)

// Ожидаемые исходы операций. Транспорт различает их через errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidSlot  = errors.New("invalid slot")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
	// ErrSystem хранилище недоступно или запись не удалась
	ErrSystem = errors.New("system error")
)

// Причины, уточняющие ErrInvalidSlot во внутренних логах
var (
	errSlotNotFound  = errors.New("slot not found")
	errSlotOwner     = errors.New("slot owner mismatch")
	errSlotStatus    = errors.New("slot is not swappable")
	errSameSlot      = errors.New("cannot swap a slot with itself")
	errSameOwnerSlot = errors.New("both slots belong to the same user")
)

// ValidationError ошибка входных данных с указанием поля
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func systemError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSystem, op, err)
}

// Kind возвращает категорию ошибки для транспорта; неизвестные ошибки считаются системными
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrInvalidSlot, ErrUnauthorized, ErrNotFound, ErrInvalidState, ErrSystem} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrSystem
}
