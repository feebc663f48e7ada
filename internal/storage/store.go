// Package storage keeps generated workbooks until they are downloaded or
// expire. Every run gets its own uuid-named directory or object prefix, so
// concurrent runs never share a path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an artifact does not exist (never written,
// already deleted or expired).
var ErrNotFound = errors.New("artifact not found")

// Artifact identifies one stored workbook.
type Artifact struct {
	Ref  string `json:"ref"`  // "<run id>/<name>"
	Name string `json:"name"` // download file name
	Size int64  `json:"size"`
}

// Store persists artifacts.
type Store interface {
	// Save creates a new run and streams the artifact through write.
	// Readers never observe a partially written artifact.
	Save(ctx context.Context, name string, write func(io.Writer) error) (Artifact, error)
	// Open returns the artifact content. The caller closes the reader.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete removes the artifact and its run. Deleting a missing
	// artifact returns ErrNotFound.
	Delete(ctx context.Context, ref string) error
}

// ParseRef splits and validates a "<run id>/<name>" reference.
func ParseRef(ref string) (id, name string, err error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid artifact ref %q", ref)
	}
	id, name = parts[0], parts[1]
	if _, err := uuid.Parse(id); err != nil {
		return "", "", fmt.Errorf("invalid artifact ref %q: bad run id", ref)
	}
	if err := validName(name); err != nil {
		return "", "", fmt.Errorf("invalid artifact ref %q: %w", ref, err)
	}
	return id, name, nil
}

// MakeRef joins a run id and artifact name.
func MakeRef(id, name string) string {
	return id + "/" + name
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || path.Base(name) != name ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
