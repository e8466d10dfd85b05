package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// responseSuffix names the per-request response files so two run
// directories can be paired by request id.
const responseSuffix = "_response.json"

// Store writes one response file per request under a run directory. Files
// live only as long as the caller keeps the directory; nothing here
// persists state across runs.
type Store struct {
	dir string
}

// NewStore creates the run directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes the response body for a request id.
func (s *Store) Save(requestID string, body []byte) error {
	path := filepath.Join(s.dir, requestID+responseSuffix)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("writing response for %s: %w", requestID, err)
	}
	return nil
}

// ListResponses maps request ids to response file paths in dir.
func ListResponses(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading run directory: %w", err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, responseSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, responseSuffix)
		out[id] = filepath.Join(dir, name)
	}
	return out, nil
}
