// Package analytics records one event per completed generation request to an
// append-only JSONL file. Delivery is best-effort: the sink never blocks the
// response path, and a full buffer drops events rather than stalling callers.
package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"promptforge/internal/config"
	"promptforge/internal/logging"
	"promptforge/internal/types"
)

const defaultBufferSize = 256

// Sink buffers analytics events and writes them from a background goroutine.
type Sink struct {
	events chan types.AnalyticsEvent
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int64
}

// NewSink opens the JSONL file and starts the writer goroutine. A disabled
// config returns a nil sink; all Sink methods are nil-safe.
func NewSink(cfg config.AnalyticsConfig) (*Sink, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	if dir := filepath.Dir(cfg.FilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create analytics directory: %w", err)
		}
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics file: %w", err)
	}

	s := &Sink{
		events: make(chan types.AnalyticsEvent, bufferSize),
		done:   make(chan struct{}),
	}
	go s.writeLoop(file)

	logging.Analytics("Analytics sink opened: %s (buffer=%d)", cfg.FilePath, bufferSize)
	return s, nil
}

// Record enqueues an event. When the buffer is full the event is dropped and
// counted; Record never blocks.
func (s *Sink) Record(event types.AnalyticsEvent) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.events <- event:
	default:
		s.dropped++
		logging.Analytics("Analytics buffer full, dropped event for tool=%s", event.ToolID)
	}
	s.mu.Unlock()
}

// Dropped returns how many events were discarded due to a full buffer.
func (s *Sink) Dropped() int64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close drains buffered events to disk and stops the writer goroutine.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.events)
	<-s.done
	return nil
}

func (s *Sink) writeLoop(file *os.File) {
	defer close(s.done)
	defer file.Close()

	encoder := json.NewEncoder(file)
	for event := range s.events {
		if err := encoder.Encode(event); err != nil {
			logging.Analytics("Failed to write analytics event: %v", err)
		}
	}
	if err := file.Sync(); err != nil {
		logging.AnalyticsDebug("Analytics file sync failed: %v", err)
	}
}
