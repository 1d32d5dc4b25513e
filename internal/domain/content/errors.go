package content

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownObjectKind  = errors.New("unknown object kind")
	ErrScratchUnavailable = errors.New("scratch storage unavailable")
)
