package seatmap

import "errors"

var (
	ErrScreenNotFound    = errors.New("screen not found")
	ErrLayoutUnavailable = errors.New("screen layout unavailable")
)
