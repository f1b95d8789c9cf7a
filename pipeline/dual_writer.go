package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-products/models"
)

// MultiWriter fans records out to several sinks, e.g. CSV and JSONL.
type MultiWriter struct {
	writers []OutputWriter
	mu      sync.Mutex
}

// NewMultiWriter combines writers; they are written and closed in order.
func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// NewDualWriter stages a CSV file and a JSONL file side by side.
func NewDualWriter(csvPath, jsonPath string, opts WriterOptions) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvPath, opts)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonPath, opts)
	if err != nil {
		csvWriter.Abort()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return NewMultiWriter(csvWriter, jsonWriter), nil
}

// Write writes records to every sink, stopping at the first failure.
func (mw *MultiWriter) Write(records []models.ProductRecord) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for _, w := range mw.writers {
		if err := w.Write(records); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and reports all failures.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for _, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Abort discards every sink that supports it.
func (mw *MultiWriter) Abort() {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for _, w := range mw.writers {
		if a, ok := w.(aborter); ok {
			a.Abort()
		}
	}
}

// Validate validates every sink.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
