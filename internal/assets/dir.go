package assets

import (
	"context"
	"errors"
	"io/fs"
)

// DirStore reads assets from a filesystem, typically os.DirFS(dir).
type DirStore struct {
	fsys fs.FS
}

func NewDirStore(fsys fs.FS) *DirStore {
	return &DirStore{fsys: fsys}
}

func (d *DirStore) Get(_ context.Context, name string) (Object, error) {
	body, err := fs.ReadFile(d.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, err
	}
	obj := Object{Body: body, ContentType: contentTypeFor(name)}
	if info, err := fs.Stat(d.fsys, name); err == nil {
		obj.UpdatedAt = info.ModTime()
	}
	return obj, nil
}
