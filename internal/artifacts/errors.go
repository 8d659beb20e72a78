package artifacts

import "errors"

var (
	ErrNotFound          = errors.New("artifact not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported format: accepted extensions are xml, json, html, csv, txt, log")
	ErrTooLarge          = errors.New("artifact too large")
)
