package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrValidation           = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRateLimited          = errors.New("rate limited")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrMissingPrice         = errors.New("required price is missing")
	ErrUnsupportedTradeType = errors.New("unsupported trade type")
)
