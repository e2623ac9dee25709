package store

import "errors"

// ErrNotFound is returned when the requested username does not exist.
var ErrNotFound = errors.New("user not found")

// ErrDuplicate is returned when registering a username that already exists.
var ErrDuplicate = errors.New("user already registered")
