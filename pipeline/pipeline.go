package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(table *Table) error
	Close() error
	Validate() error
}

// Pipeline collects category batches and writes them as one table on Close.
// Nothing reaches the writer before Close, so an aborted run exports nothing.
type Pipeline struct {
	writer  OutputWriter
	batches []Batch

	metrics metrics

	mu     sync.Mutex // guards batches/closed/err
	closed bool
	err    error

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:   writer,
		metrics:  newMetrics(),
		shutdown: make(chan struct{}),
	}
}

// Process validates the records of one category and appends them as a batch
// labelled label. Invalid records are dropped and counted.
func (p *Pipeline) Process(label string, records []*models.ProductRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	valid := make([]*models.ProductRecord, 0, len(records))
	for _, record := range records {
		if err := parser.ValidateRecord(record); err != nil {
			p.metrics.addValidation("invalid_record")
			slog.Debug("record rejected", slog.Any("error", err))
			continue
		}
		valid = append(valid, record)
	}

	p.batches = append(p.batches, Batch{Label: label, Table: BuildBatchTable(valid)})
	p.metrics.addProcessed(len(valid))
	return nil
}

// Close concatenates all batches in arrival order and writes them once.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signalShutdown()
	if p.closed {
		return p.err
	}
	p.closed = true

	table := Concat(p.batches)
	if err := p.writer.Write(table); err != nil {
		p.err = fmt.Errorf("write table: %w", err)
		return p.err
	}
	slog.Info("table written",
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", len(table.Columns)),
	)
	return nil
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("processed", metrics["processed_products"].(int64)),
					slog.Int("batches", metrics["batches"].(int)),
					slog.Int("validation_errors", len(metrics["validation_errors"].(map[string]int))),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	batches    int
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addProcessed(n int) {
	m.mu.Lock()
	m.processed += int64(n)
	m.batches++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_products": m.processed,
		"batches":            m.batches,
		"validation_errors":  copyValidation,
	}
}
