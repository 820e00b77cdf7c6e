package service

import "errors"

var (
	ErrNotFound      = errors.New("error not found")
	ErrQuoteInactive = errors.New("error quote is not active")
)
