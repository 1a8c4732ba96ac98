package extraction

import "errors"

var (
	// ErrInsufficientInput indicates the raw text is too short to parse.
	ErrInsufficientInput = errors.New("insufficient input text")

	// ErrUnrecoverableResponse indicates the model output could not be
	// turned into valid JSON after the defined repair attempts.
	ErrUnrecoverableResponse = errors.New("unrecoverable model response")
)
