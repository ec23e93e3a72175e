package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var _ Uploader = (*Local)(nil)

var typeByExt = func() map[string]string {
	m := make(map[string]string, len(extByType))
	for typ, ext := range extByType {
		m[ext] = typ
	}
	return m
}()

var extByType = map[string]string{
	"image/jpeg":   ".jpg",
	"image/png":    ".png",
	"image/gif":    ".gif",
	"image/webp":   ".webp",
	"image/bmp":    ".bmp",
	"image/x-icon": ".ico",
}

// Handler serves the stored files below URLPrefix. The Content-Type comes
// from the suffix alone; anything unrecognised is served as opaque bytes.
func (l *Local) Handler() http.Handler {
	files := http.StripPrefix(URLPrefix, http.FileServer(http.Dir(l.root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		typ, ok := typeByExt[strings.ToLower(path.Ext(r.URL.Path))]
		if !ok {
			typ = "application/octet-stream"
		}
		w.Header().Set("Content-Type", typ)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

// URLPrefix is the route the server mounts the local store under.
const URLPrefix = "/uploads"

// Local writes objects below a directory and serves them from the API host.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the folder layout under root. baseURL is the externally
// visible origin, e.g. "http://localhost:5000".
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(root, ProfileFolder), 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: creating %s: %w", root, err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload stores obj under a random name. The file is written to a temp file
// first and renamed, so readers never see a partial image.
func (l *Local) Upload(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + extension(obj)
	dir := filepath.Join(l.root, ProfileFolder)

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("objectstore: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, obj.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("objectstore: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("objectstore: closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("objectstore: storing %s: %w", name, err)
	}

	return l.baseURL + path.Join(URLPrefix, ProfileFolder, name), nil
}

// extension maps the sniffed content type to a file suffix. The client's file
// name is never consulted: the suffix decides the Content-Type the file is
// served with.
func extension(obj Object) string {
	if ext, ok := extByType[obj.ContentType]; ok {
		return ext
	}
	return ".img"
}
