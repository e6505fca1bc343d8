// Package audit appends acquisition events to a JSON-lines file next to the
// adapter cache.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Logger struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

type Event struct {
	Timestamp string            `json:"timestamp"`
	Attempt   string            `json:"attempt,omitempty"`
	Operation string            `json:"operation"`
	Phase     string            `json:"phase"`
	Status    string            `json:"status"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	ev.Timestamp = now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(blob, '\n')); err != nil {
		return err
	}
	return nil
}

// Trail groups the events of one operation under a shared attempt id.
type Trail struct {
	logger    *Logger
	attempt   string
	operation string
	fields    map[string]string
}

// Begin starts a trail. fields are copied into every event of the trail.
func (l *Logger) Begin(operation string, fields map[string]string) *Trail {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Trail{logger: l, attempt: uuid.New().String(), operation: operation, fields: copied}
}

func (t *Trail) Attempt() string {
	if t == nil {
		return ""
	}
	return t.attempt
}

// Step records phase as "ok" when err is nil and as "error" otherwise. Write
// failures are dropped; the audit log never fails the operation it describes.
func (t *Trail) Step(phase string, err error) {
	if t == nil {
		return
	}
	ev := Event{Attempt: t.attempt, Operation: t.operation, Phase: phase, Status: "ok", Fields: t.fields}
	if err != nil {
		ev.Status = "error"
		ev.Message = err.Error()
		ev.Code = errorCode(ev.Message)
	}
	_ = t.logger.Log(ev)
}

// errorCode returns the leading "CODE:" of msg, or "" when there is none.
func errorCode(msg string) string {
	code, _, ok := strings.Cut(msg, ":")
	if !ok || code == "" {
		return ""
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return ""
		}
	}
	if code[0] < 'A' || code[0] > 'Z' {
		return ""
	}
	return code
}
