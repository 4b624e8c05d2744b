package store

import "errors"

var (
	ErrConflict = errors.New("slot conflict")
	ErrNotFound = errors.New("not found")
	ErrTimeout  = errors.New("schedule lock timeout")
)
