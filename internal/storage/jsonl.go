package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolScope/internal/model"
)

// JsonlStorage writes collected states and error records to JSONL
// files, one JSON object per line.
type JsonlStorage struct {
	statePath string
	errorPath string
	mu        sync.Mutex
}

func NewJsonlStorage(statePath, errorPath string) *JsonlStorage {
	return &JsonlStorage{statePath: statePath, errorPath: errorPath}
}

// PutStateBatch appends a batch of pool states as JSON lines.
func (s *JsonlStorage) PutStateBatch(states []*model.PoolState) error {
	if len(states) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(states))
	for _, state := range states {
		values = append(values, state)
	}
	return s.appendLines(s.statePath, values)
}

// PutErrorBatch appends a batch of per-query failures as JSON lines.
func (s *JsonlStorage) PutErrorBatch(errs []model.CollectError) error {
	if len(errs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(errs))
	for _, rec := range errs {
		values = append(values, rec)
	}
	return s.appendLines(s.errorPath, values)
}

func (s *JsonlStorage) appendLines(path string, values []interface{}) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, value := range values {
		line, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
