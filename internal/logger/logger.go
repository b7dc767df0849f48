// Package logger persists one jsonl record per executed test case. The
// report command reads the same file back; verbose detail stays in the
// captured stdout/stderr artifacts the records point at.
package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// defaultMaxLogBytes is the file size at which the log is rotated (10 MB).
const defaultMaxLogBytes = 10 * 1024 * 1024

// Record is the structured outcome of one executed test case.
type Record struct {
	Timestamp  string `json:"timestamp"`
	Program    string `json:"program"`
	TestCase   string `json:"test_case"`
	Result     string `json:"result"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	ControlDir string `json:"control_dir,omitempty"`
}

// Good reports whether the record's outcome does not count against the run.
func (r Record) Good() bool {
	switch r.Result {
	case "passed", "skipped", "expected_failure":
		return true
	}
	return false
}

// ResultsLog appends records to an on-disk jsonl file.
type ResultsLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*ResultsLog, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &ResultsLog{path: path, file: file}, nil
}

// rotateIfNeeded rotates the log file if it has reached defaultMaxLogBytes.
// It renames the current file to <path>.1 (dropping any existing .1) and
// opens a fresh log file. Must be called with l.mu held.
func (l *ResultsLog) rotateIfNeeded() error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat results log: %w", err)
	}
	if info.Size() < defaultMaxLogBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log before rotation: %w", err)
	}

	rotated := l.path + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("rotate results log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open fresh log after rotation: %w", err)
	}
	l.file = f
	return nil
}

// Append writes one record to the log.
func (l *ResultsLog) Append(record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "kyua: warning: log rotation failed: %v\n", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *ResultsLog) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Read loads every record in the results log at path. Malformed lines are
// skipped; a missing file yields an empty slice.
func Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}
