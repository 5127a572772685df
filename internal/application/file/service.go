package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/fintrack/fintrack-api/internal/domain"
	"github.com/fintrack/fintrack-api/internal/pkg/id"
	"github.com/fintrack/fintrack-api/internal/pkg/validate"
)

// Service stores media objects (receipt photos, voice notes) in the blob
// store with a metadata row per object.
type Service interface {
	Upload(ctx context.Context, userID string, req *domain.UploadMediaRequest) (*domain.File, error)
	Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *domain.File, error)
	PresignedURL(ctx context.Context, userID, fileID string) (string, error)
	Delete(ctx context.Context, userID, fileID string) error
}

type blobStore interface {
	UploadBase64(ctx context.Context, key, b64Data, contentType string) (string, int64, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type fileStore interface {
	Put(ctx context.Context, f *domain.File) error
	Get(ctx context.Context, fileID string) (*domain.File, error)
	Delete(ctx context.Context, fileID string) error
}

type service struct {
	blobs  blobStore
	files  fileStore
	urlTTL time.Duration
}

func NewService(blobs blobStore, files fileStore) Service {
	return &service{blobs: blobs, files: files, urlTTL: 15 * time.Minute}
}

func (s *service) Upload(ctx context.Context, userID string, req *domain.UploadMediaRequest) (*domain.File, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	fileID := id.New()
	key := objectKey(userID, fileID, req.Filename)
	_, size, err := s.blobs.UploadBase64(ctx, key, req.Base64, req.ContentType)
	if err != nil {
		return nil, err
	}

	f := &domain.File{
		FileID:      fileID,
		UserID:      userID,
		Key:         key,
		ContentType: req.ContentType,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.files.Put(ctx, f); err != nil {
		// The blob is orphaned if this delete fails too; it only costs storage.
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			slog.Warn("failed to clean up blob after metadata write failure", "key", key, "err", derr)
		}
		return nil, err
	}
	return f, nil
}

func (s *service) Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *domain.File, error) {
	f, err := s.owned(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.blobs.Download(ctx, f.Key)
	if err != nil {
		return nil, nil, err
	}
	return body, f, nil
}

func (s *service) PresignedURL(ctx context.Context, userID, fileID string) (string, error) {
	f, err := s.owned(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignedURL(ctx, f.Key, s.urlTTL)
}

func (s *service) Delete(ctx context.Context, userID, fileID string) error {
	f, err := s.owned(ctx, userID, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, f.Key); err != nil {
		return err
	}
	return s.files.Delete(ctx, fileID)
}

// owned loads the metadata row and enforces that it belongs to userID.
// Foreign files are reported as not found rather than forbidden, so file IDs
// cannot be probed.
func (s *service) owned(ctx context.Context, userID, fileID string) (*domain.File, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return f, nil
}

func objectKey(userID, fileID, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("media/%s/%s%s", userID, fileID, ext)
}
