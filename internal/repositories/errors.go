package repositories

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrAlreadyEnded = errors.New("interview already ended")
)
