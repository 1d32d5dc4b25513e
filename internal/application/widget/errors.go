package widget

import "errors"

var (
	ErrFileNotFound  = errors.New("widget import file could not be found")
	ErrEmptyFile     = errors.New("widget import file does not have any content in it")
	ErrCorruptedData = errors.New("widget import data could not be read")
	ErrStoreOptions  = errors.New("failed to store widget options")
)
