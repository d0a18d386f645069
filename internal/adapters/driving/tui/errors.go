package tui

import "errors"

// ErrMissingCoordinator is returned when the sync coordinator is not provided.
var ErrMissingCoordinator = errors.New("tui: sync coordinator is required")
