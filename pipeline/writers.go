package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/aluiziolira/go-scrape-products/models"
)

const utf8BOM = "\ufeff"

const defaultFileMode os.FileMode = 0o644

// WriterOptions controls how a file sink treats an existing target.
type WriterOptions struct {
	// Append keeps the rows of an existing file ahead of the new ones.
	Append bool
	// DedupeExisting skips new rows whose (website, product_link) is already
	// present in the existing file. Only meaningful with Append.
	DedupeExisting bool
}

// recordKey identifies a record across platforms.
type recordKey struct {
	website models.Platform
	link    string
}

func keyOf(r models.ProductRecord) recordKey {
	return recordKey{website: r.Website, link: r.ProductLink}
}

// stagedFile is a temp file in the target directory that is renamed over the
// target on commit, so readers never observe a partial file.
type stagedFile struct {
	path string
	tmp  *os.File
}

func stage(path string) (*stagedFile, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	// CreateTemp uses 0600; the published file keeps the target's mode.
	if err := tmp.Chmod(publishMode(path)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}
	return &stagedFile{path: path, tmp: tmp}, nil
}

func publishMode(path string) os.FileMode {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return defaultFileMode
	}
	return info.Mode().Perm()
}

func (s *stagedFile) commit() error {
	if err := s.tmp.Sync(); err != nil {
		s.abort()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := s.tmp.Close(); err != nil {
		os.Remove(s.tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(s.tmp.Name(), s.path); err != nil {
		os.Remove(s.tmp.Name())
		return fmt.Errorf("publish %s: %w", s.path, err)
	}
	return nil
}

func (s *stagedFile) abort() {
	s.tmp.Close()
	os.Remove(s.tmp.Name())
}

// CSVWriter writes records to a UTF-8 (BOM-prefixed) CSV file with the fixed
// column order. Nothing is visible at the target path until Close.
type CSVWriter struct {
	path   string
	opts   WriterOptions
	file   *stagedFile
	writer *csv.Writer
	seen   map[recordKey]struct{}
	mu     sync.Mutex
	done   bool
}

// NewCSVWriter stages a CSV file and writes the header row. In append mode
// the rows of an existing target are copied first; its header must match.
func NewCSVWriter(path string, opts WriterOptions) (*CSVWriter, error) {
	staged, err := stage(path)
	if err != nil {
		return nil, &SinkWriteError{Path: path, Err: err}
	}

	cw := &CSVWriter{
		path:   path,
		opts:   opts,
		file:   staged,
		writer: csv.NewWriter(staged.tmp),
	}
	if opts.DedupeExisting {
		cw.seen = make(map[recordKey]struct{})
	}

	if err := cw.init(); err != nil {
		staged.abort()
		return nil, &SinkWriteError{Path: path, Err: err}
	}
	return cw, nil
}

func (cw *CSVWriter) init() error {
	if _, err := io.WriteString(cw.file.tmp, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	if err := cw.writer.Write(models.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if cw.opts.Append {
		if err := cw.copyExisting(); err != nil {
			return err
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv header: %w", err)
	}
	return nil
}

func (cw *CSVWriter) copyExisting() error {
	data, err := os.ReadFile(cw.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read existing csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = len(models.Columns)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read existing csv header: %w", err)
	}
	if !slices.Equal(header, models.Columns) {
		return fmt.Errorf("existing csv header %v does not match %v", header, models.Columns)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read existing csv row: %w", err)
		}
		if err := cw.writer.Write(row); err != nil {
			return fmt.Errorf("copy existing csv row: %w", err)
		}
		if cw.seen != nil {
			cw.seen[recordKey{website: models.Platform(row[7]), link: row[4]}] = struct{}{}
		}
	}
}

// Write appends records to the staged file.
func (cw *CSVWriter) Write(records []models.ProductRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.done {
		return &SinkWriteError{Path: cw.path, Err: ErrWriterClosed}
	}
	for _, rec := range records {
		if cw.seen != nil {
			if _, ok := cw.seen[keyOf(rec)]; ok {
				continue
			}
			cw.seen[keyOf(rec)] = struct{}{}
		}
		if err := cw.writer.Write(rec.Row()); err != nil {
			return &SinkWriteError{Path: cw.path, Err: fmt.Errorf("write csv record: %w", err)}
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return &SinkWriteError{Path: cw.path, Err: fmt.Errorf("flush csv records: %w", err)}
	}
	return nil
}

// Close flushes the staged file and atomically publishes it at the target path.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.done {
		return nil
	}
	cw.done = true

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.abort()
		return &SinkWriteError{Path: cw.path, Err: fmt.Errorf("flush csv writer: %w", err)}
	}
	if err := cw.file.commit(); err != nil {
		return &SinkWriteError{Path: cw.path, Err: err}
	}
	return nil
}

// Abort discards the staged file, leaving any existing target untouched.
func (cw *CSVWriter) Abort() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.done {
		return
	}
	cw.done = true
	cw.file.abort()
}

// Validate ensures the published file has content.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.path)
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records with the same staging and
// append semantics as CSVWriter.
type JSONWriter struct {
	path    string
	opts    WriterOptions
	file    *stagedFile
	writer  *bufio.Writer
	encoder *json.Encoder
	seen    map[recordKey]struct{}
	mu      sync.Mutex
	done    bool
}

// NewJSONWriter stages the JSONL file, copying existing lines in append mode.
func NewJSONWriter(path string, opts WriterOptions) (*JSONWriter, error) {
	staged, err := stage(path)
	if err != nil {
		return nil, &SinkWriteError{Path: path, Err: err}
	}

	buffer := bufio.NewWriter(staged.tmp)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	jw := &JSONWriter{
		path:    path,
		opts:    opts,
		file:    staged,
		writer:  buffer,
		encoder: encoder,
	}
	if opts.DedupeExisting {
		jw.seen = make(map[recordKey]struct{})
	}

	if opts.Append {
		if err := jw.copyExisting(); err != nil {
			staged.abort()
			return nil, &SinkWriteError{Path: path, Err: err}
		}
	}
	return jw, nil
}

func (jw *JSONWriter) copyExisting() error {
	f, err := os.Open(jw.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open existing json: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec models.ProductRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("existing json line %d: %w", line, err)
		}
		if jw.seen != nil {
			jw.seen[keyOf(rec)] = struct{}{}
		}
		jw.writer.Write(raw)
		if err := jw.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("copy existing json: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read existing json: %w", err)
	}
	return nil
}

// Write appends records in JSONL format.
func (jw *JSONWriter) Write(records []models.ProductRecord) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.done {
		return &SinkWriteError{Path: jw.path, Err: ErrWriterClosed}
	}
	for _, rec := range records {
		if jw.seen != nil {
			if _, ok := jw.seen[keyOf(rec)]; ok {
				continue
			}
			jw.seen[keyOf(rec)] = struct{}{}
		}
		if err := jw.encoder.Encode(rec); err != nil {
			return &SinkWriteError{Path: jw.path, Err: fmt.Errorf("encode json record: %w", err)}
		}
	}
	if err := jw.writer.Flush(); err != nil {
		return &SinkWriteError{Path: jw.path, Err: fmt.Errorf("flush json writer: %w", err)}
	}
	return nil
}

// Close flushes buffers and publishes the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.done {
		return nil
	}
	jw.done = true

	if err := jw.writer.Flush(); err != nil {
		jw.file.abort()
		return &SinkWriteError{Path: jw.path, Err: fmt.Errorf("flush json writer: %w", err)}
	}
	if err := jw.file.commit(); err != nil {
		return &SinkWriteError{Path: jw.path, Err: err}
	}
	return nil
}

// Abort discards the staged file.
func (jw *JSONWriter) Abort() {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.done {
		return
	}
	jw.done = true
	jw.file.abort()
}

// Validate ensures the JSON file exists. An empty result is a valid, empty file.
func (jw *JSONWriter) Validate() error {
	if _, err := os.Stat(jw.path); err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
