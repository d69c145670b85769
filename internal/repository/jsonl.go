package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/model"
)

// JSONLWriter appends one JSON document per line to a file. Parent
// directories are created on first write.
type JSONLWriter struct {
	mu   sync.Mutex
	path string
}

// NewJSONLWriter creates a writer for path
func NewJSONLWriter(path string) *JSONLWriter {
	return &JSONLWriter{path: path}
}

// Path returns the file the writer appends to
func (w *JSONLWriter) Path() string {
	return w.path
}

// Append writes record as a single line
func (w *JSONLWriter) Append(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", w.path, err)
	}
	return nil
}

// JSONLEventLog records leads, feedback and turns to append-only files
type JSONLEventLog struct {
	leads    *JSONLWriter
	feedback *JSONLWriter
	turns    *JSONLWriter
	now      func() time.Time
}

// NewJSONLEventLog creates an event log from configuration
func NewJSONLEventLog(cfg config.EventsConfig) *JSONLEventLog {
	return &JSONLEventLog{
		leads:    NewJSONLWriter(cfg.LeadsPath),
		feedback: NewJSONLWriter(cfg.FeedbackPath),
		turns:    NewJSONLWriter(cfg.TurnsPath),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordLead stamps and appends a lead
func (l *JSONLEventLog) RecordLead(_ context.Context, lead model.Lead) (model.Lead, error) {
	lead.Timestamp = l.stamp(lead.Timestamp)
	if err := l.leads.Append(lead); err != nil {
		return lead, fmt.Errorf("record lead: %w", err)
	}
	return lead, nil
}

// RecordFeedback stamps and appends a feedback note
func (l *JSONLEventLog) RecordFeedback(_ context.Context, fb model.Feedback) (model.Feedback, error) {
	fb.Timestamp = l.stamp(fb.Timestamp)
	if err := l.feedback.Append(fb); err != nil {
		return fb, fmt.Errorf("record feedback: %w", err)
	}
	return fb, nil
}

// RecordTurn stamps and appends a turn audit record
func (l *JSONLEventLog) RecordTurn(_ context.Context, turn model.TurnRecord) error {
	turn.Timestamp = l.stamp(turn.Timestamp)
	if err := l.turns.Append(turn); err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

func (l *JSONLEventLog) stamp(ts *time.Time) *time.Time {
	if ts != nil {
		return ts
	}
	now := l.now()
	return &now
}
