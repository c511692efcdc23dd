// Package file implements a local filesystem-backed store.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"musiclake/internal/datasource"
)

func init() {
	datasource.Register(func(ctx context.Context, loc datasource.Location, _ datasource.Options) (datasource.Store, error) {
		return NewLocal(), nil
	}, "")
}

// Local is a store over the local disk. Keys are slash-separated paths,
// relative to the working directory unless they start with "/".
//
// Local is safe for concurrent use; concurrent writers to the same key race
// on the final rename and the last one wins.
type Local struct{}

// NewLocal returns a local filesystem store.
func NewLocal() *Local { return &Local{} }

func osPath(key string) string {
	if key == "" {
		return "."
	}
	return filepath.FromSlash(key)
}

// List walks prefix and returns regular files. A missing prefix yields an
// empty listing.
func (l *Local) List(ctx context.Context, prefix string, recursive bool) ([]datasource.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := osPath(prefix)
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []datasource.Object{{Key: prefix, Size: info.Size()}}, nil
	}

	var out []datasource.Object
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, datasource.Object{
			Key:  datasource.Join(prefix, filepath.ToSlash(rel)),
			Size: fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	datasource.SortObjects(out)
	return out, nil
}

// Open opens key for reading. A missing file satisfies
// errors.Is(err, fs.ErrNotExist).
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := osPath(key)
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

// Put writes data to a temporary sibling and renames it over key, creating
// parent directories as needed.
func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := osPath(key)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(p)+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", p, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", p, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", p, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", p, err)
	}
	return nil
}

// DeletePrefix removes the directory (or file) at prefix. The empty prefix
// and the filesystem root are refused.
func (l *Local) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := strings.TrimSuffix(prefix, "/")
	if clean == "" || clean == "." {
		return fmt.Errorf("delete: refusing to delete the working directory")
	}
	p := osPath(clean)
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// Close is a no-op.
func (l *Local) Close() error { return nil }
