package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// Pipeline validates records, drops repeated (website, product_link) keys and
// hands them to an OutputWriter in batches.
type Pipeline struct {
	writer    OutputWriter
	recordCh  chan models.ProductRecord
	batchSize int

	wg sync.WaitGroup

	keysMu sync.Mutex // guards seen/stats
	seen   map[recordKey]struct{}
	stats  Stats

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline with a modest in-memory buffer.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:    writer,
		recordCh:  make(chan models.ProductRecord, 512),
		batchSize: 64,
		seen:      make(map[recordKey]struct{}),
		stats:     Stats{Rejected: make(map[string]int)},
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines. Use a single worker when the sink must
// receive records in submission order.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues records for downstream processing.
func (p *Pipeline) Process(records []models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, rec := range records {
		if err := p.enqueue(rec); err != nil {
			if werr := p.Err(); werr != nil {
				return werr
			}
			return err
		}
	}
	return nil
}

// Close waits for workers to drain and prevents more submissions. It does not
// close the underlying writer.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		close(p.recordCh)
	})

	p.wg.Wait()
	p.signalShutdown()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns what the pipeline has accepted and rejected so far.
func (p *Pipeline) Stats() Stats {
	p.keysMu.Lock()
	defer p.keysMu.Unlock()
	return Stats{Written: p.stats.Written, Rejected: maps.Clone(p.stats.Rejected)}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]models.ProductRecord, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rec := range p.recordCh {
		if !p.prepare(rec) {
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) prepare(rec models.ProductRecord) bool {
	var reason string
	if err := parser.ValidateRecord(rec); err != nil {
		reason = RejectInvalid
	}

	p.keysMu.Lock()
	defer p.keysMu.Unlock()
	key := keyOf(rec)
	if reason == "" {
		if _, ok := p.seen[key]; ok {
			reason = RejectDuplicate
		}
	}
	if reason != "" {
		p.stats.Rejected[reason]++
		return false
	}
	p.seen[key] = struct{}{}
	p.stats.Written++
	return true
}

func (p *Pipeline) enqueue(rec models.ProductRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.recordCh <- rec:
		return nil
	}
}

// setErr records the first worker failure. The channel stays open so that
// concurrent enqueues observe shutdown instead of a closed channel; Close
// drains it.
func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

// Reasons a Pipeline drops a record.
const (
	RejectInvalid   = "invalid_record"
	RejectDuplicate = "duplicate_record"
)

// Stats counts records a Pipeline passed to its writer and records it
// dropped, keyed by reason.
type Stats struct {
	Written  int64
	Rejected map[string]int
}

// RejectedTotal sums Rejected.
func (s Stats) RejectedTotal() int {
	n := 0
	for _, v := range s.Rejected {
		n += v
	}
	return n
}
