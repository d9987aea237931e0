// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, mongo, memory) inside this directory
// and translate driver-specific errors into the sentinels below.
package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when an insert violates a unique field.
	ErrDuplicate = errors.New("document already exists")
)
