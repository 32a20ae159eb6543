package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"launchpadIndexer/internal/model"
)

// JsonlStorage appends log records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writer, err := NewJSONLWriter(s.path, true)
	if err != nil {
		return err
	}
	for _, record := range logs {
		if err := writer.Write(record); err != nil {
			writer.Close()
			return fmt.Errorf("log record %d:%d: %w", record.BlockNumber, record.LogIndex, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// JSONLWriter writes one JSON value per line through a buffer.
type JSONLWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// NewJSONLWriter opens path for writing, creating parent directories. The
// file is truncated unless appendMode is set.
func NewJSONLWriter(path string, appendMode bool) (*JSONLWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &JSONLWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *JSONLWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
