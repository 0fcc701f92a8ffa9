package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing primary key.
var ErrConflict = errors.New("already exists")
