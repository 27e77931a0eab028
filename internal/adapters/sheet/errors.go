package sheet

import "errors"

var (
	ErrRead  = errors.New("read sheet")
	ErrWrite = errors.New("write sheet")
)
