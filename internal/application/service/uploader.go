package service

import (
	"context"
	"io"
)

// AvatarUploader sends image bytes to the CDN under publicID and returns the
// public URL. Every failure is an apperror with base ErrUpload.
type AvatarUploader interface {
	Upload(ctx context.Context, file io.Reader, publicID string) (string, error)
	Delete(ctx context.Context, publicID string) error
}
