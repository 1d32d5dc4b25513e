package file

import "errors"

var (
	ErrMissingURL     = errors.New("missing url for downloading a file")
	ErrDownload       = errors.New("error occurred while fetching file")
	ErrSaveDownload   = errors.New("file could not be saved after download")
)
