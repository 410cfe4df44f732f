// Package storage keeps uploaded images (ID cards, profile pictures) on the
// local filesystem and serves them under a public URL prefix.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"peerhelp/internal/apperr"
)

// MaxImageSize is the upper bound for uploaded images.
const MaxImageSize = 5 << 20

// Upload kinds, used as sub directories.
const (
	KindIDCard  = "id-cards"
	KindPicture = "pictures"
)

var (
	// ErrUnsupportedImage is returned for anything other than JPEG or PNG.
	ErrUnsupportedImage = apperr.New(apperr.KindValidation, "UNSUPPORTED_IMAGE", "Only JPEG and PNG images are allowed")
	// ErrFileTooLarge is returned for files above MaxImageSize.
	ErrFileTooLarge = apperr.New(apperr.KindValidation, "FILE_TOO_LARGE", "File exceeds the 5MB limit")
)

var allowedImages = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// FileStore stores uploaded images.
type FileStore interface {
	// SaveImage validates and stores an image, returning its public path.
	SaveImage(ctx context.Context, kind string, fh *multipart.FileHeader) (string, error)
	// Remove deletes a file previously returned by SaveImage. Missing files are ignored.
	Remove(ctx context.Context, publicPath string) error
}

// LocalStore writes files below a root directory.
type LocalStore struct {
	root   string
	prefix string
}

var _ FileStore = (*LocalStore)(nil)

// NewLocalStore creates the root directory if needed. Files are exposed
// under prefix (for example "/uploads").
func NewLocalStore(root, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root, prefix: "/" + strings.Trim(prefix, "/")}, nil
}

// Root returns the directory files are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) SaveImage(ctx context.Context, kind string, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", apperr.Validation("file is required")
	}
	if fh.Size > MaxImageSize {
		return "", ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", apperr.Internal("failed to read upload", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperr.Internal("failed to read upload", err)
	}
	ext, ok := allowedImages[http.DetectContentType(head[:n])]
	if !ok {
		return "", ErrUnsupportedImage
	}

	dir := filepath.Join(s.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Internal("failed to store upload", err)
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", apperr.Internal("failed to store upload", err)
	}
	defer dst.Close()

	// Copy one byte past the limit to detect a lying Size header.
	written, err := io.Copy(dst, io.LimitReader(io.MultiReader(bytes.NewReader(head[:n]), src), MaxImageSize+1))
	if err != nil {
		_ = os.Remove(dst.Name())
		return "", apperr.Internal("failed to store upload", err)
	}
	if written > MaxImageSize {
		_ = os.Remove(dst.Name())
		return "", ErrFileTooLarge
	}

	return path.Join(s.prefix, kind, name), nil
}

func (s *LocalStore) Remove(ctx context.Context, publicPath string) error {
	rel := strings.TrimPrefix(publicPath, s.prefix+"/")
	if rel == "" || rel == publicPath || strings.Contains(rel, "..") {
		return nil
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("remove upload failed", "path", publicPath, "error", err)
		return err
	}
	return nil
}
