// Package datasource abstracts the object stores the pipeline reads input
// from and writes tables to. A store is addressed by URI; the scheme picks a
// backend registered through Register, and the remainder becomes a key
// prefix inside that store.
//
// Keys are always slash separated, whatever the backend.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupportedScheme is returned by Open for URIs whose scheme has no
// registered backend.
var ErrUnsupportedScheme = errors.New("datasource: unsupported scheme")

// ErrReadOnly is returned by stores that cannot accept writes.
var ErrReadOnly = errors.New("datasource: store is read-only")

// Object describes one listed key.
type Object struct {
	Key  string
	Size int64
}

// Base returns the last path element of the key.
func (o Object) Base() string { return path.Base(o.Key) }

// Store is a flat key space with directory-like listing.
type Store interface {
	// List returns the objects under prefix sorted by key. With recursive
	// false only objects directly under prefix are returned.
	List(ctx context.Context, prefix string, recursive bool) ([]Object, error)
	// Open streams the object at key. The caller must close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Put replaces the object at key.
	Put(ctx context.Context, key string, data []byte) error
	// DeletePrefix removes every object under prefix. A missing prefix is
	// not an error.
	DeletePrefix(ctx context.Context, prefix string) error
	// Close releases clients held by the store.
	Close() error
}

// Options carries per-backend connection settings.
type Options struct {
	S3   S3Options
	GCS  GCSOptions
	HTTP HTTPOptions
}

// S3Options configures the s3/s3a/s3n backend.
type S3Options struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Endpoint        string
	UsePathStyle    bool
}

// GCSOptions configures the gs backend.
type GCSOptions struct {
	CredentialsFile string
	Endpoint        string
}

// HTTPOptions configures the read-only http/https backend.
type HTTPOptions struct {
	MaxRetries         int
	InsecureSkipVerify bool
}

// Location is a parsed store URI.
type Location struct {
	Scheme string // "" for local paths
	Bucket string // host part for bucket stores
	Prefix string // key prefix inside the store, no leading or trailing "/"
}

// Opener constructs a store rooted at loc.Bucket.
type Opener func(ctx context.Context, loc Location, opts Options) (Store, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Opener{}
)

// Register binds an opener to one or more URI schemes. Later registrations
// replace earlier ones.
func Register(open Opener, schemes ...string) {
	regMu.Lock()
	defer regMu.Unlock()
	for _, s := range schemes {
		registry[strings.ToLower(s)] = open
	}
}

// Schemes lists the registered schemes in sorted order.
func Schemes() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Parse splits a URI into scheme, bucket and prefix. Bare paths and file://
// URIs parse with an empty scheme; their prefix is the cleaned path, which
// keeps a leading "/" when absolute. The empty string means the current
// directory.
func Parse(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	i := strings.Index(uri, "://")
	if i < 0 {
		return Location{Prefix: cleanLocal(uri)}, nil
	}
	scheme := strings.ToLower(uri[:i])
	if scheme == "file" {
		return Location{Prefix: cleanLocal(uri[i+len("://"):])}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("datasource: parse %q: %w", uri, err)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("datasource: %q has no bucket or host", uri)
	}
	loc := Location{
		Scheme: scheme,
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}
	return loc, nil
}

func cleanLocal(p string) string {
	if p == "" || p == "." {
		return ""
	}
	abs := strings.HasPrefix(p, "/")
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	if abs {
		return p
	}
	return strings.TrimSuffix(p, "/")
}

// Open parses uri and opens the store that serves it. The returned prefix is
// the key prefix the URI points at inside that store.
func Open(ctx context.Context, uri string, opts Options) (Store, string, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, "", err
	}
	regMu.RLock()
	open, ok := registry[loc.Scheme]
	regMu.RUnlock()
	if !ok {
		name := loc.Scheme
		if name == "" {
			name = "file"
		}
		return nil, "", fmt.Errorf("%w %q (registered: %s)", ErrUnsupportedScheme, name, strings.Join(Schemes(), ", "))
	}
	st, err := open(ctx, loc, opts)
	if err != nil {
		return nil, "", err
	}
	return st, loc.Prefix, nil
}

// Join joins key elements with "/", skipping empty ones. A leading "/" on
// the first element is preserved so absolute local paths stay absolute.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	lead := false
	for i, e := range elem {
		if i == 0 && strings.HasPrefix(e, "/") {
			lead = true
		}
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	out := strings.Join(parts, "/")
	if lead {
		return "/" + out
	}
	return out
}

// DirPrefix returns prefix with exactly one trailing "/" unless it is empty.
func DirPrefix(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// IsDirect reports whether key sits directly under dir (a DirPrefix result).
func IsDirect(dir, key string) bool {
	if !strings.HasPrefix(key, dir) {
		return false
	}
	return !strings.Contains(key[len(dir):], "/")
}

// SortObjects orders objects by key.
func SortObjects(objs []Object) {
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })
}
