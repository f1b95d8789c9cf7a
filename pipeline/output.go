package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
)

// OutputWriter defines the interface for record output.
type OutputWriter interface {
	Write(records []models.ProductRecord) error
	Close() error
	Validate() error
}

type aborter interface {
	Abort()
}

// NewOutputWriter builds the file sink for format: csv, json, or dual. In
// dual mode the JSONL file sits next to path with a .jsonl extension.
func NewOutputWriter(format, path string, opts WriterOptions) (OutputWriter, error) {
	switch format {
	case "", "csv":
		return NewCSVWriter(path, opts)
	case "json":
		return NewJSONWriter(path, opts)
	case "dual":
		return NewDualWriter(path, JSONLPath(path), opts)
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// JSONLPath swaps the extension of path for .jsonl.
func JSONLPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl"
}

// Persist streams records through a single-worker Pipeline into w, then
// publishes and validates the output. On a write failure the staged output is
// discarded. The returned Stats say how many records reached w and why the
// others were dropped.
func Persist(w OutputWriter, records []models.ProductRecord) (Stats, error) {
	p := NewPipeline(w)
	p.Start(1)
	err := p.Process(records)
	if cerr := p.Close(); err == nil {
		err = cerr
	}
	stats := p.Stats()
	if err != nil {
		if a, ok := w.(aborter); ok {
			a.Abort()
		}
		return stats, err
	}
	if err := w.Close(); err != nil {
		return stats, err
	}
	return stats, w.Validate()
}
