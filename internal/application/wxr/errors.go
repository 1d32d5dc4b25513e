package wxr

import "errors"

var (
	ErrNoXMLSupport       = errors.New("no xml parsing strategy available")
	ErrFileUnreadable     = errors.New("import file unreadable")
	ErrMissingVersion     = errors.New("wxr version missing or malformed")
	ErrUnsupportedVersion = errors.New("wxr version unsupported")
	ErrMalformedXML       = errors.New("malformed xml")
)
