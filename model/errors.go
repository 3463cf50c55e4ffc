package model

import "fmt"

// FormatError means the file was read but its content is not something we
// can import.
type FormatError struct {
	Filename string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format: %s", e.Filename, e.Reason)
}

// IoError means the file could not be read at all.
type IoError struct {
	Filename string
	Err      error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}
