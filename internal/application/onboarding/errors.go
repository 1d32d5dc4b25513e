package onboarding

import "errors"

var (
	ErrInvalidContent = errors.New("invalid content")
	ErrUnknownDemo    = errors.New("selected demo does not exist")
	ErrNoContentFile  = errors.New("selected demo has no content file")
	ErrInvalidCursor  = errors.New("invalid content cursor")
	ErrMissingSlug    = errors.New("plugin slug is required")
	ErrMissingLicense = errors.New("license key is required")
	ErrLicenseRequest = errors.New("license api request failed")
	ErrStoreState     = errors.New("failed to store setup state")
	ErrSliderArchive  = errors.New("slider archive could not be extracted")
	ErrReduxFile      = errors.New("redux options file could not be read")
	ErrBaseNameToken  = errors.New("failed to keep import file base name")
)
