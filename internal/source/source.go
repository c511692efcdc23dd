// Package source finds input objects in a store and decodes them into
// records.
package source

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"musiclake/internal/datasource"
	"musiclake/internal/logging"
	"musiclake/internal/parser"
	"musiclake/pkg/records"
)

// DefaultPattern matches input files when a Spec leaves Pattern empty.
const DefaultPattern = "*.json"

// Spec selects the files of one input dataset.
type Spec struct {
	// Dir is joined onto the input root.
	Dir string
	// Pattern is matched against each file's base name with path.Match.
	Pattern string
	// Recursive descends into subdirectories.
	Recursive bool
}

// Discover lists the objects under root/spec.Dir that match spec, in key
// order. Files or directories whose name starts with "_" or "." are skipped.
func Discover(ctx context.Context, st datasource.Store, root string, spec Spec) ([]datasource.Object, error) {
	pattern := spec.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("source: bad pattern %q: %w", pattern, err)
	}

	dir := datasource.Join(root, spec.Dir)
	objs, err := st.List(ctx, dir, spec.Recursive)
	if err != nil {
		return nil, err
	}

	base := datasource.DirPrefix(dir)
	out := objs[:0]
	for _, o := range objs {
		rel := strings.TrimPrefix(o.Key, base)
		if hidden(rel) {
			continue
		}
		if ok, _ := path.Match(pattern, path.Base(rel)); !ok {
			continue
		}
		out = append(out, o)
	}
	datasource.SortObjects(out)
	return out, nil
}

// hidden reports whether any element of rel starts with "_" or ".".
func hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, "_") || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Result is the decoded content of a set of objects.
type Result struct {
	Records []records.Record
	Files   int
	Corrupt int
}

// Loader fetches and decodes objects concurrently.
type Loader struct {
	Store   datasource.Store
	Parser  parser.Parser
	Workers int
	Log     *logging.Logger
}

// Load decodes every object. Fetches run on up to Workers goroutines but the
// records are concatenated in the order of objs. The first failure cancels
// the remaining fetches.
func (l *Loader) Load(ctx context.Context, objs []datasource.Object) (Result, error) {
	perFile := make([][]records.Record, len(objs))
	corrupt := make([]int, len(objs))

	g, gctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, o := range objs {
		g.Go(func() error {
			recs, bad, err := l.loadOne(gctx, o.Key)
			if err != nil {
				return err
			}
			perFile[i] = recs
			corrupt[i] = bad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Files: len(objs)}
	n := 0
	for _, recs := range perFile {
		n += len(recs)
	}
	res.Records = make([]records.Record, 0, n)
	for i, recs := range perFile {
		res.Records = append(res.Records, recs...)
		res.Corrupt += corrupt[i]
	}
	return res, nil
}

func (l *Loader) loadOne(ctx context.Context, key string) ([]records.Record, int, error) {
	rc, err := l.Store.Open(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	recs, bad, err := l.Parser.Parse(rc)
	if err != nil {
		return nil, bad, fmt.Errorf("%s: %w", key, err)
	}
	if bad > 0 && l.Log != nil {
		l.Log.Warn("corrupt records replaced with nulls", "key", key, "corrupt", bad)
	}
	return recs, bad, nil
}
