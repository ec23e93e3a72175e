// Package objectstore stores uploaded binary objects and hands back a public
// URL. Only the URL is kept in the user document.
package objectstore

import (
	"context"
	"io"
)

// ProfileFolder is where profile pictures are filed in every backend.
const ProfileFolder = "profile_pictures"

// Object is one upload.
type Object struct {
	// Name is the client-supplied file name. Backends use it only for the
	// extension fallback, never as a storage path.
	Name string
	// ContentType is the sniffed MIME type, e.g. "image/png".
	ContentType string
	Body        io.Reader
}

// Uploader accepts an object and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, obj Object) (string, error)
}
