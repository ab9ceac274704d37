// Package commit provides adapters for reading the commit identifier.
package commit

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// DefaultFileName is the commit identifier file looked up in the checkout root.
const DefaultFileName = "COMMIT_ID"

// FileReader reads the commit identifier from a file written by the CI checkout step.
type FileReader struct {
	path string
}

// NewFileReader creates a reader for the file at path.
func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

// Path returns the file the reader consumes.
func (r *FileReader) Path() string {
	return r.path
}

// ReadCommitID returns the trimmed file content.
func (r *FileReader) ReadCommitID(_ context.Context) (string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrCommitIDUnavailable, r.path, err)
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyCommitID, r.path)
	}
	return id, nil
}
