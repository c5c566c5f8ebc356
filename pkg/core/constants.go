package core

import "errors"

// Errors
var (
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidTif       = errors.New("invalid TIF")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrOrderExists      = errors.New("order exists")
	ErrNonexistentOrder = errors.New("nonexistent order")
	ErrSymbolMismatch   = errors.New("symbol mismatch")
)
