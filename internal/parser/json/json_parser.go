// Package json implements a JSON Lines parser that turns input objects into
// records.Record maps.
//
// It follows the conventions of line-delimited JSON exports:
//
//   - One JSON object per line:
//     {"song_id":"S1","year":2004}
//     {"song_id":"S2","year":0}
//   - Blank lines are skipped.
//   - A line holding a top-level array of objects yields one record per
//     element.
//
// A line that is not valid JSON is a corrupt record. In permissive mode it is
// returned as an empty record (every column null downstream) and counted; in
// failfast mode it is reported as a *LineError.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"musiclake/internal/config"
	"musiclake/internal/parser"
	"musiclake/pkg/records"
)

// Mode selects how corrupt lines are handled.
type Mode string

const (
	ModePermissive Mode = "permissive"
	ModeFailFast   Mode = "failfast"
)

// Options configures a Decoder.
type Options struct {
	Mode Mode
}

// FromConfigOptions constructs JSON Options from a generic config.Options
// map. Unknown modes fall back to permissive.
func FromConfigOptions(o config.Options) Options {
	m := Mode(o.String("mode", string(ModePermissive)))
	if m != ModeFailFast {
		m = ModePermissive
	}
	return Options{Mode: m}
}

// LineError reports a corrupt line in failfast mode.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("json parser: line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Decoder reads records line by line.
type Decoder struct {
	r       *bufio.Reader
	opt     Options
	line    int
	corrupt int
	pending []records.Record
}

// NewDecoder constructs a Decoder from an io.Reader and JSON Options.
func NewDecoder(r io.Reader, opt Options) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024), opt: opt}
}

// Line returns the number of lines consumed so far.
func (d *Decoder) Line() int { return d.line }

// Corrupt returns how many corrupt lines were replaced by empty records.
func (d *Decoder) Corrupt() int { return d.corrupt }

// Next returns the next record or io.EOF when the input is exhausted.
func (d *Decoder) Next() (records.Record, error) {
	for {
		if len(d.pending) > 0 {
			rec := d.pending[0]
			d.pending = d.pending[1:]
			return rec, nil
		}

		raw, err := d.r.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("json parser: read: %w", err)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("json parser: read: %w", err)
		}
		d.line++

		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		recs, perr := decodeLine(raw)
		if perr != nil {
			if d.opt.Mode == ModeFailFast {
				return nil, &LineError{Line: d.line, Err: perr}
			}
			d.corrupt++
			return records.Record{}, nil
		}
		d.pending = recs
	}
}

// decodeLine decodes one line into zero or more records.
func decodeLine(raw []byte) ([]records.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	// UseNumber so integer columns survive without float rounding.
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}

	switch v := root.(type) {
	case map[string]any:
		return []records.Record{records.Record(v)}, nil
	case []any:
		out := make([]records.Record, 0, len(v))
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d in array is not an object", i)
			}
			out = append(out, records.Record(obj))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported top-level JSON type %T", v)
	}
}

// DecodeAll reads every record from r. It returns the records and the number
// of corrupt lines that were replaced by empty records.
func DecodeAll(r io.Reader, opt Options) ([]records.Record, int, error) {
	d := NewDecoder(r, opt)
	var out []records.Record
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, d.Corrupt(), nil
		}
		if err != nil {
			return nil, d.Corrupt(), err
		}
		out = append(out, rec)
	}
}

// Parser adapts DecodeAll to parser.Parser.
type Parser struct {
	Opt Options
}

// Parse implements parser.Parser.
func (p Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	return DecodeAll(r, p.Opt)
}

func init() {
	parser.Register("json", func(o config.Options) (parser.Parser, error) {
		return Parser{Opt: FromConfigOptions(o)}, nil
	})
}
