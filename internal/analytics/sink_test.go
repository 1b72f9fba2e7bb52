package analytics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"promptforge/internal/config"
	"promptforge/internal/types"
)

func testSink(t *testing.T, bufferSize int) (*Sink, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analytics.jsonl")
	sink, err := NewSink(config.AnalyticsConfig{
		Enabled:    true,
		FilePath:   path,
		BufferSize: bufferSize,
	})
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	return sink, path
}

func readEvents(t *testing.T, path string) []types.AnalyticsEvent {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	var events []types.AnalyticsEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event types.AnalyticsEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("bad JSONL line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	return events
}

func TestSinkWritesEvents(t *testing.T) {
	sink, path := testSink(t, 8)

	for i := 0; i < 3; i++ {
		sink.Record(types.AnalyticsEvent{
			EventID:      "evt",
			ToolID:       "cursor",
			Stage:        types.StageSkeleton,
			Confidence:   0.8,
			PromptLength: 100 + i,
			Success:      true,
			Latency:      25 * time.Millisecond,
			Timestamp:    time.Now().UTC(),
		})
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].ToolID != "cursor" || !events[0].Success {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[2].PromptLength != 102 {
		t.Errorf("events written out of order: %+v", events)
	}
}

func TestSinkDisabledIsNil(t *testing.T) {
	sink, err := NewSink(config.AnalyticsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if sink != nil {
		t.Fatal("disabled config should return a nil sink")
	}

	// Nil sink methods must be safe no-ops.
	sink.Record(types.AnalyticsEvent{ToolID: "cursor"})
	if sink.Dropped() != 0 {
		t.Error("nil sink reported drops")
	}
	if err := sink.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestSinkRecordAfterCloseIsNoOp(t *testing.T) {
	sink, path := testSink(t, 8)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sink.Record(types.AnalyticsEvent{ToolID: "late"})
	if err := sink.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if events := readEvents(t, path); len(events) != 0 {
		t.Errorf("event recorded after close: %+v", events)
	}
}

func TestSinkAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.jsonl")
	cfg := config.AnalyticsConfig{Enabled: true, FilePath: path, BufferSize: 4}

	for i := 0; i < 2; i++ {
		sink, err := NewSink(cfg)
		if err != nil {
			t.Fatalf("NewSink %d: %v", i, err)
		}
		sink.Record(types.AnalyticsEvent{ToolID: "cursor", Success: true})
		if err := sink.Close(); err != nil {
			t.Fatalf("Close %d: %v", i, err)
		}
	}

	if events := readEvents(t, path); len(events) != 2 {
		t.Errorf("got %d events after two sessions, want 2", len(events))
	}
}

func TestSinkCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "analytics.jsonl")
	sink, err := NewSink(config.AnalyticsConfig{Enabled: true, FilePath: path, BufferSize: 4})
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	sink.Record(types.AnalyticsEvent{ToolID: "cursor"})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("analytics file missing: %v", err)
	}
}
