package repository

import "errors"

var (
	// ErrNotFound is returned when the addressed row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrLikeContention is returned when the comment row lock could not be taken in time
	ErrLikeContention = errors.New("comment is locked by a concurrent like")
)
