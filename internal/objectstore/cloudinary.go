package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var _ Uploader = (*Cloudinary)(nil)

// Cloudinary uploads images to a Cloudinary account and returns the HTTPS
// delivery URL.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary configures the client from a
// cloudinary://<key>:<secret>@<cloud> URL.
func NewCloudinary(cloudinaryURL string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("objectstore: configuring cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, folder: ProfileFolder}, nil
}

// Upload streams obj to Cloudinary as an image resource.
func (c *Cloudinary) Upload(ctx context.Context, obj Object) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, obj.Body, uploader.UploadParams{
		Folder:       c.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("objectstore: cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("objectstore: cloudinary upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("objectstore: cloudinary returned no URL")
	}
	return resp.SecureURL, nil
}
