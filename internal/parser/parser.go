// Package parser defines the input decoders the loader can use, keyed by the
// parser.kind pipeline setting.
package parser

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"musiclake/internal/config"
	"musiclake/pkg/records"
)

// Parser decodes one input object into records. The int result is the
// number of corrupt entries that were tolerated.
type Parser interface {
	Parse(r io.Reader) ([]records.Record, int, error)
}

// Factory builds a Parser from its options block.
type Factory func(opts config.Options) (Parser, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a parser kind available to New.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New builds the parser registered for kind.
func New(kind string, opts config.Options) (Parser, error) {
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("parser: unknown kind %q (registered: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return f(opts)
}

// Kinds lists the registered parser kinds.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
