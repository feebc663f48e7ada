package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LocalStore keeps artifacts under <root>/<run id>/<name>.
type LocalStore struct {
	root string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create result dir %q: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the directory artifacts are stored under.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Save(ctx context.Context, name string, write func(io.Writer) error) (Artifact, error) {
	if err := validName(name); err != nil {
		return Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create run dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		os.RemoveAll(dir)
		return Artifact{}, fmt.Errorf("create temp file: %w", err)
	}
	fail := func(err error) (Artifact, error) {
		tmp.Close()
		os.RemoveAll(dir)
		return Artifact{}, err
	}

	if err := write(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync artifact: %w", err))
	}
	info, err := tmp.Stat()
	if err != nil {
		return fail(fmt.Errorf("stat artifact: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.RemoveAll(dir)
		return Artifact{}, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.RemoveAll(dir)
		return Artifact{}, fmt.Errorf("publish artifact: %w", err)
	}

	return Artifact{Ref: MakeRef(id, name), Name: name, Size: info.Size()}, nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete artifact: %w", err)
	}
	// the run directory only ever holds this artifact
	if err := os.RemoveAll(filepath.Dir(p)); err != nil {
		return fmt.Errorf("delete run dir: %w", err)
	}
	return nil
}

// Purge removes run directories last modified before now-olderThan and
// returns how many were removed. A zero olderThan removes every run.
func (s *LocalStore) Purge(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read result dir: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if olderThan > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return removed, fmt.Errorf("purge %q: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (s *LocalStore) path(ref string) (string, error) {
	id, name, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, id, name), nil
}
