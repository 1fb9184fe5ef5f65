package gcs

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-lifecycle/internal/domain/apperror"
	domainstorage "github.com/oksasatya/go-user-lifecycle/internal/domain/storage"
	"github.com/oksasatya/go-user-lifecycle/pkg/helpers"
)

const defaultFolder = "users"

// PhotoStore keeps profile photos in a GCS bucket under <folder>/<uuid><ext>.
type PhotoStore struct {
	Client *storage.Client
	Bucket string
	Logger *logrus.Logger
}

func NewPhotoStore(client *storage.Client, bucket string, logger *logrus.Logger) *PhotoStore {
	return &PhotoStore{Client: client, Bucket: bucket, Logger: logger}
}

func (s *PhotoStore) Upload(ctx context.Context, in domainstorage.PhotoUpload) (domainstorage.PhotoAsset, error) {
	if s.Client == nil || s.Bucket == "" {
		return domainstorage.PhotoAsset{}, apperror.Upload("photo storage not configured", nil)
	}
	if in.Reader == nil {
		return domainstorage.PhotoAsset{}, apperror.Upload("empty photo", nil)
	}
	objectPath := objectPathFor(in.Folder, in.Filename)
	url, err := helpers.UploadObject(ctx, s.Client, s.Bucket, objectPath, helpers.ContentTypeFor(in.Filename, in.ContentType), in.Reader)
	if err != nil {
		return domainstorage.PhotoAsset{}, apperror.Upload("photo upload failed", err)
	}
	return domainstorage.PhotoAsset{AssetID: objectPath, Locator: url}, nil
}

// Replace writes the new object before touching the old one, so a failed
// upload leaves the prior photo intact. A prior object that cannot be removed
// is logged and left behind.
func (s *PhotoStore) Replace(ctx context.Context, existingAssetID string, in domainstorage.PhotoUpload) (domainstorage.PhotoAsset, error) {
	asset, err := s.Upload(ctx, in)
	if err != nil {
		return domainstorage.PhotoAsset{}, err
	}
	if existingAssetID == "" || existingAssetID == asset.AssetID {
		return asset, nil
	}
	if err := s.Delete(ctx, existingAssetID); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("asset_id", existingAssetID).Warn("remove replaced photo failed")
	}
	return asset, nil
}

func (s *PhotoStore) Delete(ctx context.Context, assetID string) error {
	if strings.TrimSpace(assetID) == "" {
		return nil
	}
	if s.Client == nil || s.Bucket == "" {
		return apperror.Store("photo storage not configured", nil)
	}
	err := s.Client.Bucket(s.Bucket).Object(assetID).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return apperror.Store("photo delete failed", err)
}

func objectPathFor(folder, filename string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = defaultFolder
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, uuid.NewString()+ext)
}

var _ domainstorage.PhotoStore = (*PhotoStore)(nil)
