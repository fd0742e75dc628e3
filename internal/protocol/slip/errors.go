package slip

import "errors"

var (
	ErrMalformedEscape = errors.New("slip: invalid byte after escape")
	ErrFrameTooLarge   = errors.New("slip: frame exceeds limit")
)
