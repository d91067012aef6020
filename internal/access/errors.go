package access

import "errors"

var (
	ErrInvalidInput = errors.New("access: invalid input")
	ErrNotFound     = errors.New("access: not found")
	ErrConflict     = errors.New("access: resource conflict")
	ErrUnauthorized = errors.New("access: unauthorized")
	ErrForbidden    = errors.New("access: forbidden")
	ErrInvalidToken = errors.New("access: invalid token")
)
