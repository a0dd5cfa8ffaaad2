// Package assets serves product images from an S3 bucket or a local
// directory.
package assets

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"path"
	"strings"
	"time"
)

var ErrNotFound = errors.New("asset not found")

type Object struct {
	Body        []byte
	ContentType string
	UpdatedAt   time.Time
}

type Store interface {
	Get(ctx context.Context, name string) (Object, error)
}

// CleanName rejects names that would escape the asset root.
func CleanName(raw string) (string, bool) {
	name := path.Clean("/" + raw)
	name = strings.TrimPrefix(name, "/")
	if name == "" || name == "." || !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
