// Package upload keeps proof-of-payment images on local disk.
package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
)

var allowed = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

type Store struct {
	dir      string
	maxBytes int64
}

func New(dir string, maxBytes int64) *Store {
	return &Store{dir: dir, maxBytes: maxBytes}
}

// Save sniffs r, rejects anything that is not an image or is larger than the
// configured limit, and writes it under a generated name which it returns.
func (s *Store) Save(r io.Reader, transactionID uuid.UUID) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	if int64(len(data)) > s.maxBytes {
		return "", apperr.Invalid("file exceeds %d bytes", s.maxBytes)
	}

	if len(data) == 0 {
		return "", apperr.Invalid("file is empty")
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowed...) {
		return "", apperr.Invalid("file must be an image, got %s", mt.String())
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s%s", transactionID, uuid.NewString()[:8], mt.Extension())

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return name, nil
}

// Remove deletes a stored file. Unknown names are ignored.
func (s *Store) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing upload: %w", err)
	}

	return nil
}
