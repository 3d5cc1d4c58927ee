package errors

import "errors"

// Sentinel errors for the progression and storage layers. Handlers translate
// these into APIError responses; nothing in the domain layers mutates state
// before returning one.
var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientResources = errors.New("insufficient resource points")
	ErrAlreadyHarvested      = errors.New("item already harvested")
)
