package contract

import "errors"

var (
	ErrCompletion      = errors.New("completion failed")
	ErrEmptyCompletion = errors.New("completion returned no text")
	ErrUnknownHandler  = errors.New("unknown handler")
	ErrValidation      = errors.New("validation failed")
)
