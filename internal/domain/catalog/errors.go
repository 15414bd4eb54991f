package catalog

import "errors"

var (
	ErrInvalidSpec     = errors.New("invalid table spec")
	ErrDependencyCycle = errors.New("foreign key dependency cycle")

	ErrMissingSource       = errors.New("source extract not found")
	ErrUnknownColumn       = errors.New("column not accepted by table")
	ErrInvalidValue        = errors.New("value cannot be converted to column type")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrConnection          = errors.New("storage connection failure")
)
