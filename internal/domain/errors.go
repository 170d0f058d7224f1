package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Repositories wrap these so the flow layer can map to result kinds
// without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)
