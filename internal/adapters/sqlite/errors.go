package sqlite

import "errors"

var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrRowMismatch   = errors.New("table rows do not match sheet rows")
	ErrColumnMissing = errors.New("column not found in sheet")
)
