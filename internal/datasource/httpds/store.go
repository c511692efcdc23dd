package httpds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"musiclake/internal/datasource"
)

// ManifestName is the list file a Store reads to enumerate a prefix. It holds
// one key per line relative to the prefix; '#' starts a comment.
const ManifestName = "_manifest"

func init() {
	datasource.Register(func(ctx context.Context, loc datasource.Location, opts datasource.Options) (datasource.Store, error) {
		c := NewClient(Config{
			Retries:  opts.HTTP.MaxRetries,
			Insecure: opts.HTTP.InsecureSkipVerify,
		})
		return NewStore(c, loc.Scheme+"://"+loc.Bucket), nil
	}, "http", "https")
}

// Store is a read-only datasource.Store over an HTTP server.
type Store struct {
	client *Client
	base   string // scheme://host, no trailing slash
}

// NewStore returns a store that resolves keys against base.
func NewStore(c *Client, base string) *Store {
	return &Store{client: c, base: strings.TrimSuffix(base, "/")}
}

func (s *Store) url(key string) string {
	return s.base + "/" + strings.TrimPrefix(key, "/")
}

func (s *Store) get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.client.Fetch(ctx, s.url(key))
}

// List reads prefix/_manifest. A missing manifest yields an empty listing.
// Sizes are reported as -1.
func (s *Store) List(ctx context.Context, prefix string, recursive bool) ([]datasource.Object, error) {
	rc, err := s.get(ctx, datasource.Join(prefix, ManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer rc.Close()

	lines, err := datasource.ReadList(rc)
	if err != nil {
		return nil, fmt.Errorf("read manifest under %q: %w", prefix, err)
	}

	dir := datasource.DirPrefix(prefix)
	out := make([]datasource.Object, 0, len(lines))
	for _, rel := range lines {
		key := datasource.Join(prefix, rel)
		if !recursive && !datasource.IsDirect(dir, key) {
			continue
		}
		out = append(out, datasource.Object{Key: key, Size: -1})
	}
	datasource.SortObjects(out)
	return out, nil
}

// Open fetches key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.get(ctx, key)
}

// Put always fails with datasource.ErrReadOnly.
func (s *Store) Put(context.Context, string, []byte) error { return datasource.ErrReadOnly }

// DeletePrefix always fails with datasource.ErrReadOnly.
func (s *Store) DeletePrefix(context.Context, string) error { return datasource.ErrReadOnly }

// Close is a no-op.
func (s *Store) Close() error { return nil }
