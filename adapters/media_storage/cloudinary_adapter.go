package media_storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/internal/application/service"
	"github.com/khoahotran/user-directory/internal/config"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
)

const defaultUploadTimeout = 15 * time.Second

type cloudinaryAdapter struct {
	cld     *cloudinary.Cloudinary
	folder  string
	timeout time.Duration
	logger  logger.Logger
}

func NewCloudinaryAdapter(cfg config.Config, log logger.Logger) (service.AvatarUploader, error) {

	if cfg.Cloudinary.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud_name has not config")
	}

	cld, err := cloudinary.NewFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.ApiKey,
		cfg.Cloudinary.ApiSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot init cloudinary: %w", err)
	}

	log.Info("connect Cloudinary successfully.", zap.String("cloud_name", cfg.Cloudinary.CloudName))
	return newCloudinaryAdapter(cld, cfg.Cloudinary.Folder, cfg.Cloudinary.UploadTimeout, log), nil
}

func newCloudinaryAdapter(cld *cloudinary.Cloudinary, folder string, timeout time.Duration, log logger.Logger) *cloudinaryAdapter {
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &cloudinaryAdapter{cld: cld, folder: folder, timeout: timeout, logger: log}
}

// Upload is bounded by the adapter timeout and by ctx. A rejected upload, a
// timeout, or a response without a secure URL all return an ErrUpload.
func (a *cloudinaryAdapter) Upload(ctx context.Context, file io.Reader, publicID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	overwrite := false
	uploadParams := uploader.UploadParams{
		PublicID:     publicID,
		Folder:       a.folder,
		ResourceType: "image",
		Overwrite:    &overwrite,
	}
	result, err := a.cld.Upload.Upload(ctx, file, uploadParams)
	if err != nil {
		return "", apperror.NewUpload("failed to upload cloudinary", err)
	}
	if result == nil {
		return "", apperror.NewUpload("cloudinary returned no result", nil)
	}
	if result.Error.Message != "" {
		return "", apperror.NewUpload("cloudinary rejected upload", fmt.Errorf("%s", result.Error.Message))
	}
	if result.SecureURL == "" {
		return "", apperror.NewUpload("cloudinary response has no secure_url", nil)
	}
	return result.SecureURL, nil
}

func (a *cloudinaryAdapter) Delete(ctx context.Context, publicID string) error {
	if a.folder != "" {
		publicID = a.folder + "/" + publicID
	}
	_, err := a.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return apperror.NewUpload("failed to delete cloudinary", err)
	}
	return nil
}
