package diaglog

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryState, "STATE"},
		{CategoryPattern, "PATTERN"},
		{CategoryError, "ERROR"},
		{Category(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestEncodeDecodeStateChange(t *testing.T) {
	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Environment:  "staging",
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "HANDSHAKE_PENDING",
			NewState: "CONNECTED",
			Elapsed:  100 * time.Millisecond,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.ConnectionID != event.ConnectionID {
		t.Errorf("ConnectionID: got %q, want %q", decoded.ConnectionID, event.ConnectionID)
	}
	if decoded.Environment != "staging" {
		t.Errorf("Environment: got %q, want staging", decoded.Environment)
	}
	if decoded.StateChange == nil {
		t.Fatal("StateChange is nil")
	}
	if decoded.StateChange.NewState != "CONNECTED" {
		t.Errorf("NewState: got %q, want CONNECTED", decoded.StateChange.NewState)
	}
	if decoded.StateChange.Elapsed != 100*time.Millisecond {
		t.Errorf("Elapsed: got %v, want 100ms", decoded.StateChange.Elapsed)
	}
	if decoded.Pattern != nil || decoded.Error != nil {
		t.Error("unset payloads should decode as nil")
	}
}

func TestEncodeDecodePattern(t *testing.T) {
	event := Event{
		Timestamp:   time.Now(),
		Environment: "production",
		Category:    CategoryPattern,
		Pattern: &PatternEvent{
			PatternID: "f0a2",
			Type:      "timing_violation",
			Severity:  "warning",
			Details:   map[string]any{"overshoot_ms": int64(100)},
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Pattern == nil {
		t.Fatal("Pattern is nil")
	}
	if decoded.Pattern.Type != "timing_violation" {
		t.Errorf("Type: got %q, want timing_violation", decoded.Pattern.Type)
	}
	if decoded.Pattern.Severity != "warning" {
		t.Errorf("Severity: got %q, want warning", decoded.Pattern.Severity)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	for i, env := range []string{"testing", "staging", "production"} {
		logger.Log(Event{
			Timestamp:    time.Now(),
			ConnectionID: "conn-1",
			Environment:  env,
			Category:     CategoryState,
			StateChange: &StateChangeEvent{
				OldState: "INITIALIZING",
				NewState: "HANDSHAKE_PENDING",
				Elapsed:  time.Duration(i) * time.Millisecond,
			},
		})
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Log after close is silently ignored
	logger.Log(Event{Environment: "ignored"})

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("read %d events, want 3", count)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Log(Event{
					Timestamp:   time.Now(),
					Environment: "testing",
					Category:    CategoryState,
				})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		count++
	}
	if count != 200 {
		t.Errorf("read %d events, want 200", count)
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{
		Timestamp:   time.Now(),
		Environment: "staging",
		Category:    CategoryPattern,
		Pattern:     &PatternEvent{Type: "timing_violation", Severity: "warning"},
	})
	logger.Log(Event{
		Timestamp:   time.Now(),
		Environment: "staging",
		Category:    CategoryPattern,
		Pattern:     &PatternEvent{Type: "premature_message_handling", Severity: "critical"},
	})
	logger.Log(Event{
		Timestamp:   time.Now(),
		Environment: "production",
		Category:    CategoryState,
		StateChange: &StateChangeEvent{OldState: "INITIALIZING", NewState: "HANDSHAKE_PENDING"},
	})
	logger.Close()

	reader, err := NewFilteredReader(path, Filter{PatternType: "timing_violation"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if event.Pattern == nil || event.Pattern.Type != "timing_violation" {
		t.Error("filter returned the wrong event")
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after one match, got %v", err)
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "absent.wlog")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMultiLoggerFanOut(t *testing.T) {
	var a, b recordingLogger
	multi := NewMultiLogger(&a, &b)

	multi.Log(Event{Environment: "testing", Category: CategoryError})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out counts = %d, %d; want 1, 1", len(a.events), len(b.events))
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	adapter := NewSlogAdapter(logger)
	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-9",
		Environment:  "staging",
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "CONNECTED",
			NewState: "READY_FOR_MESSAGES",
			Elapsed:  125 * time.Millisecond,
		},
	})

	out := buf.String()
	for _, want := range []string{"conn-9", "staging", "READY_FOR_MESSAGES", "CONNECTED"} {
		if !strings.Contains(out, want) {
			t.Errorf("slog output missing %q: %s", want, out)
		}
	}
}

// recordingLogger captures events for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}
