package importer

import "errors"

var (
	ErrLoadSession = errors.New("failed to load import session")
	ErrSaveSession = errors.New("failed to save import session")
	ErrWarmIndex   = errors.New("failed to warm existence index")

	ErrNoAttachmentURL  = errors.New("attachment has no url")
	ErrNoSideloader     = errors.New("attachment downloads are disabled")
	ErrRemoteStatus     = errors.New("remote server returned an error")
	ErrSizeMismatch     = errors.New("remote file is incorrect size")
	ErrEmptyFile        = errors.New("zero size file downloaded")
	ErrFileTooLarge     = errors.New("remote file is too large")
	ErrUnsupportedMedia = errors.New("sorry, this file type is not permitted")
)
