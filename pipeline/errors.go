package pipeline

import (
	"errors"
	"fmt"
)

// ErrWriterClosed is returned when Write is called after Close or Abort.
var ErrWriterClosed = errors.New("pipeline: writer closed")

// SinkWriteError is a terminal failure to persist records.
type SinkWriteError struct {
	Path string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}
