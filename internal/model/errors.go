package model

import "errors"

var (
	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound возвращается, если сущность с указанным идентификатором отсутствует в разделе.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition возвращается при недопустимом переходе состояния записи.
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	// ErrAuthentication возвращается, если раздел неизвестен или пароль неверен.
	ErrAuthentication = errors.New("authentication failed")
)
