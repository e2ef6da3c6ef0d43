// Package common defines shared constants and sentinel errors used across
// phonebind layers. Callers should use errors.Is to match these values;
// package-specific errors wrap one of the classes below.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Error classes. Every failure surfaced by the core belongs to one of them.
	ErrValidation       = errors.New("validation error")
	ErrProvider         = errors.New("lease provider error")
	ErrIdentityProvider = errors.New("identity provider error")
	ErrStorage          = errors.New("storage error")
	ErrTimeout          = errors.New("timeout")
)
