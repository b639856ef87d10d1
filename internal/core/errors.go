package core

import "errors"

// Error kinds returned by the converter, loader and registry. Callers test
// for them with errors.Is; the wrapped message carries path and line detail.
var (
	// ErrNotFound is returned when the input file does not exist.
	ErrNotFound = errors.New("input file not found")

	// ErrParse is returned for malformed delimited content: wrong field
	// counts, bad quoting, invalid encoding, empty input or duplicate headers.
	ErrParse = errors.New("parse error")

	// ErrWrite is returned when the output file cannot be persisted.
	ErrWrite = errors.New("write error")

	// ErrLoad wraps any failure of Converter.Load.
	ErrLoad = errors.New("load failed")

	// ErrUnknownCatalog is returned when a catalog name is not registered.
	ErrUnknownCatalog = errors.New("unknown catalog")
)
