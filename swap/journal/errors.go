package journal

import "errors"

var (
	ErrEntryRequired     = errors.New("journal entry is required")
	ErrEntryIDRequired   = errors.New("journal entry id is required")
	ErrEntryExists       = errors.New("journal entry already exists")
	ErrEntryNotFound     = errors.New("journal entry not found")
	ErrInvalidStatus     = errors.New("invalid journal status")
	ErrInvalidTransition = errors.New("invalid journal status transition")
	ErrLegRequired       = errors.New("leg name is required")
)
