package customizer

import "errors"

var (
	ErrCorruptedData = errors.New("customizer data could not be decoded")
	ErrNoMods        = errors.New("customizer data has no mods")
	ErrStoreOptions  = errors.New("failed to store theme mods")
)
