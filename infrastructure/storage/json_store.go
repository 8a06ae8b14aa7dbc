// Package storage persists aggregation results.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

var _ ports.ResultStore = (*JSONFileStore)(nil)

const filePrefix = "llm_responses_"

// JSONFileStore writes each result to its own indented JSON file named
// llm_responses_<YYYYMMDD_HHMMSS>_<id>.json under a directory.
type JSONFileStore struct {
	dir string
	now func() time.Time
}

// NewJSONFileStore creates a store rooted at dir. The directory is created
// on first write.
func NewJSONFileStore(dir string) *JSONFileStore {
	return &JSONFileStore{dir: dir, now: time.Now}
}

// Dir returns the directory results are written to.
func (s *JSONFileStore) Dir() string { return s.dir }

// Store implements ports.ResultStore. The file is written to a temporary
// name and renamed into place so readers never see a partial result.
func (s *JSONFileStore) Store(ctx context.Context, result domain.AggregationResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ports.NewStoreError(s.dir, "store", err)
	}

	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return "", ports.NewStoreError(s.dir, "marshal", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", ports.NewStoreError(s.dir, "mkdir", err)
	}

	path := filepath.Join(s.dir, s.fileName(result))
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+filePrefix+"*")
	if err != nil {
		return "", ports.NewStoreError(path, "create", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return "", ports.NewStoreError(path, "write", err)
	}
	if err := tmp.Close(); err != nil {
		return "", ports.NewStoreError(path, "close", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", ports.NewStoreError(path, "rename", err)
	}
	return path, nil
}

// Load reads a result previously written by Store.
func (s *JSONFileStore) Load(path string) (domain.AggregationResult, error) {
	var result domain.AggregationResult
	data, err := os.ReadFile(path)
	if err != nil {
		return result, ports.NewStoreError(path, "read", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, ports.NewStoreError(path, "unmarshal", err)
	}
	return result, nil
}

func (s *JSONFileStore) fileName(result domain.AggregationResult) string {
	ts := result.CreatedAt
	if ts.IsZero() {
		ts = s.now()
	}
	id := strings.ReplaceAll(result.ID, "-", "")
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s%s_%s.json", filePrefix, ts.UTC().Format("20060102_150405"), id)
}
