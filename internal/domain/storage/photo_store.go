package storage

import (
	"context"
	"io"
)

// PhotoAsset identifies a stored photo: AssetID is the object key, Locator the
// URL clients fetch it from.
type PhotoAsset struct {
	AssetID string
	Locator string
}

// PhotoUpload is the payload of an upload. Folder is the key prefix.
type PhotoUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Folder      string
}

// PhotoStore is the blob store port for profile photos.
type PhotoStore interface {
	Upload(ctx context.Context, in PhotoUpload) (PhotoAsset, error)
	// Replace uploads in and then removes existingAssetID. A missing prior
	// asset, or an empty id, is not an error.
	Replace(ctx context.Context, existingAssetID string, in PhotoUpload) (PhotoAsset, error)
	// Delete is idempotent: removing an absent asset succeeds.
	Delete(ctx context.Context, assetID string) error
}
