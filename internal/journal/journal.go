// Package journal persists control-plane events to an append-only JSONL
// session log. One journal is opened per process in cmd/loopctl and
// registered as the control registry's event recorder; each line is a
// JSON-serialized control.Event.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/naviserver-project/nsloopctl/internal/control"
)

// Journal is an append-only JSONL event log. The file is synced after
// every record so the audit trail survives a hard kill. Session identity
// is "<unix-timestamp>-<pid>.jsonl".
type Journal struct {
	mu   sync.Mutex
	file *os.File
	path string
	log  *zap.Logger
}

// Open creates (or reopens) the session journal in dir. dir is created
// with os.MkdirAll if it does not exist.
func Open(dir string, log *zap.Logger) (*Journal, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("journal: mkdir %q: %w", dir, err)
	}
	name := fmt.Sprintf("%d-%d.jsonl", time.Now().Unix(), os.Getpid())
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}
	return &Journal{file: f, path: path, log: log}, nil
}

// Path returns the session file path.
func (j *Journal) Path() string { return j.path }

// Record serializes ev as a JSON line, appends it, and syncs. It is safe
// to call from multiple goroutines. Record is best-effort by contract
// (control.Recorder has no error return); write failures are logged and
// the control plane keeps running.
func (j *Journal) Record(ev control.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		j.log.Warn("journal: marshal event", zap.Error(err))
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return
	}
	if _, err := j.file.Write(data); err != nil {
		j.log.Warn("journal: write", zap.Error(err))
		return
	}
	if err := j.file.Sync(); err != nil {
		j.log.Warn("journal: sync", zap.Error(err))
	}
}

// Close closes the underlying file. Records after Close are dropped.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// Read returns all events recorded in the session file at path, in order.
func Read(path string) ([]control.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}
	defer f.Close()

	var events []control.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev control.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("journal: parse %q line %d: %w", path, len(events)+1, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: read %q: %w", path, err)
	}
	return events, nil
}
