package storage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a multipart.FileHeader the way echo hands it to handlers.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(10<<20))
	return req.MultipartForm.File["file"][0]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestLocalStore_SaveAndRemove(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "uploads")
	require.NoError(t, err)
	ctx := context.Background()

	p, err := store.SaveImage(ctx, KindIDCard, fileHeader(t, "card.png", pngBytes(t)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "/uploads/id-cards/"))
	assert.True(t, strings.HasSuffix(p, ".png"))

	onDisk := filepath.Join(root, KindIDCard, filepath.Base(p))
	_, err = os.Stat(onDisk)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, p))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	// second removal is a no-op
	assert.NoError(t, store.Remove(ctx, p))
}

func TestLocalStore_RejectsNonImages(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "uploads")
	require.NoError(t, err)

	_, err = store.SaveImage(context.Background(), KindPicture, fileHeader(t, "x.png", []byte("plain text pretending")))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestLocalStore_RejectsLargeFiles(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "uploads")
	require.NoError(t, err)

	big := append(pngBytes(t), make([]byte, MaxImageSize)...)
	_, err = store.SaveImage(context.Background(), KindPicture, fileHeader(t, "big.png", big))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestLocalStore_RemoveIgnoresForeignPaths(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "uploads")
	require.NoError(t, err)

	assert.NoError(t, store.Remove(context.Background(), "/etc/passwd"))
	assert.NoError(t, store.Remove(context.Background(), "/uploads/../../etc/passwd"))
	assert.NoError(t, store.Remove(context.Background(), ""))
}
