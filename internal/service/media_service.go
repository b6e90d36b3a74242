package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxUploadSize = 100 << 20

// allowedMedia lists the extensions platforms accept, as filetype reports them.
var allowedMedia = map[string]struct{}{
	"jpg":  {},
	"png":  {},
	"gif":  {},
	"webp": {},
	"mp4":  {},
	"mov":  {},
	"m4v":  {},
}

type MediaUpload struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type MediaService interface {
	Upload(ctx context.Context, userID string, file *multipart.FileHeader) (*MediaUpload, error)
}

type mediaService struct {
	store BlobStore
}

// NewMediaService wires uploads to store. A nil store turns every upload into ErrStorageUnavailable.
func NewMediaService(store BlobStore) MediaService {
	return &mediaService{store: store}
}

// Upload sniffs the file content, rejects anything that is not an image or
// video, and stores it under a random key.
func (s *mediaService) Upload(ctx context.Context, userID string, file *multipart.FileHeader) (*MediaUpload, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	if file == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if file.Size > maxUploadSize {
		return nil, fmt.Errorf("%w: file is larger than %d bytes", ErrInvalidInput, maxUploadSize)
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, ErrUnsupportedMedia
	}
	if _, ok := allowedMedia[kind.Extension]; !ok {
		return nil, ErrUnsupportedMedia
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("error generating media key: %w", err)
	}
	key := fmt.Sprintf("%s/%s.%s", userID, id, kind.Extension)

	url, err := s.store.Upload(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return nil, fmt.Errorf("error uploading media: %w", err)
	}
	return &MediaUpload{URL: url, ContentType: kind.MIME.Value, Size: int64(len(data))}, nil
}
