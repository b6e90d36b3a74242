package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlobs struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
		m.types = make(map[string]string)
	}
	m.objects[key] = data
	m.types[key] = contentType
	return "https://media.test/" + key, nil
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestUploadMedia(t *testing.T) {
	blobs := &memoryBlobs{}
	svc := NewMediaService(blobs)

	upload, err := svc.Upload(context.Background(), "user-1", fileHeader(t, "photo.bin", pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.Equal(t, int64(len(pngBytes)), upload.Size)
	assert.True(t, strings.HasPrefix(upload.URL, "https://media.test/user-1/"))
	assert.True(t, strings.HasSuffix(upload.URL, ".png"))

	require.Len(t, blobs.objects, 1)
	for key, data := range blobs.objects {
		assert.Equal(t, pngBytes, data)
		assert.Equal(t, "image/png", blobs.types[key])
	}
}

func TestUploadMediaRejectsUnknownContent(t *testing.T) {
	blobs := &memoryBlobs{}
	svc := NewMediaService(blobs)

	// the extension is ignored, only the content counts
	_, err := svc.Upload(context.Background(), "user-1", fileHeader(t, "notes.png", []byte("just some text")))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	pdf := append([]byte("%PDF-1.7\n"), make([]byte, 16)...)
	_, err = svc.Upload(context.Background(), "user-1", fileHeader(t, "doc.pdf", pdf))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = svc.Upload(context.Background(), "user-1", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, blobs.objects)
}

func TestUploadMediaWithoutStorage(t *testing.T) {
	_, err := NewMediaService(nil).Upload(context.Background(), "user-1", fileHeader(t, "photo.png", pngBytes))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
