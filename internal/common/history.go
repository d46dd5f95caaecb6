package common

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// HistoryEntry records one channel switch run.
type HistoryEntry struct {
	Title         string    `json:"title"`
	DisplayNumber string    `json:"displayNumber,omitempty"`
	Categories    []string  `json:"categories"`
	State         string    `json:"state"`
	Result        string    `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	Ts            time.Time `json:"ts"`
}

// History provides append-only access to a JSONL switch history.
type History struct {
	path string
	mu   sync.Mutex
}

// NewHistory returns a History that writes to the provided path.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Path returns the backing file path for the history.
func (h *History) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Append writes a new entry, one JSON object per line.
func (h *History) Append(entry HistoryEntry) error {
	if h == nil {
		return errors.New("nil history")
	}
	if entry.Title == "" {
		return errors.New("history entry missing title")
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(h.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadHistory loads every entry from the supplied JSONL file.
func ReadHistory(path string) ([]HistoryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var entries []HistoryEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
