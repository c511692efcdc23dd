// Package gcs implements datasource.Store on Google Cloud Storage (gs://).
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"musiclake/internal/datasource"
)

func init() {
	datasource.Register(func(ctx context.Context, loc datasource.Location, opts datasource.Options) (datasource.Store, error) {
		return Open(ctx, loc.Bucket, opts.GCS)
	}, "gs", "gcs")
}

// Store is a datasource.Store over one bucket.
type Store struct {
	client *storage.Client
	bucket string
}

// ClientOptions maps store options onto client options. An endpoint without
// credentials is treated as an emulator and skips authentication.
func ClientOptions(opts datasource.GCSOptions) []option.ClientOption {
	var out []option.ClientOption
	if opts.CredentialsFile != "" {
		out = append(out, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.Endpoint != "" {
		out = append(out, option.WithEndpoint(opts.Endpoint))
		if opts.CredentialsFile == "" {
			out = append(out, option.WithoutAuthentication())
		}
	}
	return append(out, option.WithScopes(storage.ScopeReadWrite))
}

// Open creates a client for bucket.
func Open(ctx context.Context, bucket string, opts datasource.GCSOptions) (*Store, error) {
	c, err := storage.NewClient(ctx, ClientOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &Store{client: c, bucket: bucket}, nil
}

func (s *Store) List(ctx context.Context, prefix string, recursive bool) ([]datasource.Object, error) {
	q := &storage.Query{Prefix: datasource.DirPrefix(prefix)}
	if !recursive {
		q.Delimiter = "/"
	}
	if err := q.SetAttrSelection([]string{"Name", "Size"}); err != nil {
		return nil, err
	}

	var out []datasource.Object
	it := s.client.Bucket(s.bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list gs://%s/%s: %w", s.bucket, prefix, err)
		}
		if o, ok := toObject(attrs); ok {
			out = append(out, o)
		}
	}
	datasource.SortObjects(out)
	return out, nil
}

// toObject drops synthetic directory entries.
func toObject(attrs *storage.ObjectAttrs) (datasource.Object, bool) {
	if attrs.Prefix != "" || attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
		return datasource.Object{}, false
	}
	return datasource.Object{Key: attrs.Name, Size: attrs.Size}, true
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("gcs: read gs://%s/%s: %w", s.bucket, key, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs: read gs://%s/%s: %w", s.bucket, key, err)
	}
	return r, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// DeletePrefix deletes every object under prefix one by one; objects that
// vanish concurrently are ignored.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if strings.Trim(prefix, "/") == "" {
		return fmt.Errorf("gcs: refusing to delete bucket root of %s", s.bucket)
	}
	objs, err := s.List(ctx, prefix, true)
	if err != nil {
		return err
	}
	for _, o := range objs {
		err := s.client.Bucket(s.bucket).Object(o.Key).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("gcs: delete gs://%s/%s: %w", s.bucket, o.Key, err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
