package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

// DiskStore keeps uploads as flat files in a single directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes r to name, replacing any file already stored under that name.
func (s *DiskStore) Save(_ context.Context, name string, r io.Reader) error {
	if !validName(name) {
		return fmt.Errorf("invalid file name %q: %w", name, errdefs.ErrValidation)
	}
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path) //nolint:gosec // name is a single path element
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func (s *DiskStore) Open(_ context.Context, name string) (*model.StoredFile, error) {
	if !validName(name) {
		return nil, fmt.Errorf("file %q: %w", name, errdefs.ErrNotFound)
	}

	f, err := os.Open(filepath.Join(s.dir, name)) //nolint:gosec // name is a single path element
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file %q: %w", name, errdefs.ErrNotFound)
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("file %q: %w", name, errdefs.ErrNotFound)
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &model.StoredFile{
		Name:        name,
		Body:        f,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: mtype.String(),
	}, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
