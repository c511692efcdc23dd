// Package columnar writes query results as Hive-partitioned Parquet
// datasets and reads them back.
//
// A table is written under <root>/<table>/ as one snappy-compressed file per
// partition directory plus a _SUCCESS marker. File names derive from a hash
// of the table and partition path, so rewriting the same rows yields the same
// keys and bytes.
package columnar

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/zeebo/xxh3"

	"musiclake/internal/datasource"
	"musiclake/internal/engine"
	"musiclake/internal/plan"
)

// SuccessMarker is written last into every table directory.
const SuccessMarker = "_SUCCESS"

// Stats summarises one table write.
type Stats struct {
	Rows       int
	Files      int
	Partitions int
}

// Writer writes tables into a store below Root, replacing what was there.
type Writer struct {
	Store datasource.Store
	Root  string
	Mem   memory.Allocator
}

// TablePrefix is the key prefix of table.
func (w *Writer) TablePrefix(table string) string {
	return datasource.Join(w.Root, table)
}

type partition struct {
	path string
	rows [][]any
}

// Write deletes the table's prefix and writes res partitioned by the given
// columns, in nesting order. Partition columns are not stored in the files.
func (w *Writer) Write(ctx context.Context, table string, res *engine.Result, partitionBy ...string) (Stats, error) {
	partIdx := make([]int, len(partitionBy))
	isPart := make(map[int]bool, len(partitionBy))
	for i, c := range partitionBy {
		j := res.Schema.Index(c)
		if j < 0 {
			return Stats{}, fmt.Errorf("columnar: %s: partition column %q not in result", table, c)
		}
		partIdx[i] = j
		isPart[j] = true
	}

	var dataFields plan.Schema
	var dataIdx []int
	for i, f := range res.Schema {
		if !isPart[i] {
			dataFields = append(dataFields, f)
			dataIdx = append(dataIdx, i)
		}
	}
	schema := arrowSchema(dataFields)

	byPath := map[string]*partition{}
	var order []*partition
	for _, row := range res.Rows {
		vals := make([]any, len(partIdx))
		for i, j := range partIdx {
			vals[i] = row[j]
		}
		p := partitionPath(partitionBy, vals)
		part, ok := byPath[p]
		if !ok {
			part = &partition{path: p}
			byPath[p] = part
			order = append(order, part)
		}
		data := make([]any, len(dataIdx))
		for i, j := range dataIdx {
			data[i] = row[j]
		}
		part.rows = append(part.rows, data)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].path < order[j].path })

	prefix := w.TablePrefix(table)
	if err := w.Store.DeletePrefix(ctx, prefix); err != nil {
		return Stats{}, fmt.Errorf("columnar: %s: clear: %w", table, err)
	}

	st := Stats{Rows: len(res.Rows), Partitions: len(order)}
	for _, part := range order {
		body, err := w.encode(schema, dataFields, part.rows)
		if err != nil {
			return st, fmt.Errorf("columnar: %s/%s: %w", table, part.path, err)
		}
		key := datasource.Join(prefix, part.path, fileName(table, part.path))
		if err := w.Store.Put(ctx, key, body); err != nil {
			return st, fmt.Errorf("columnar: %s: %w", table, err)
		}
		st.Files++
	}
	if err := w.Store.Put(ctx, datasource.Join(prefix, SuccessMarker), nil); err != nil {
		return st, fmt.Errorf("columnar: %s: marker: %w", table, err)
	}
	return st, nil
}

func fileName(table, partPath string) string {
	return fmt.Sprintf("part-00000-%016x.snappy.parquet", xxh3.HashString(table+"/"+partPath))
}

func (w *Writer) allocator() memory.Allocator {
	if w.Mem != nil {
		return w.Mem
	}
	return memory.DefaultAllocator
}

// encode renders rows as one Parquet file with a single row group.
func (w *Writer) encode(schema *arrow.Schema, fields plan.Schema, rows [][]any) ([]byte, error) {
	rec, err := buildRecord(w.allocator(), schema, fields, rows)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(w.allocator()),
	)
	fw, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return nil, fmt.Errorf("parquet write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("parquet close: %w", err)
	}
	return buf.Bytes(), nil
}

// arrowType maps a plan type to the Arrow type stored in files. Untyped
// columns are written as strings.
func arrowType(t plan.Type) arrow.DataType {
	switch t {
	case plan.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case plan.TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case plan.TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func arrowSchema(fields plan.Schema) *arrow.Schema {
	out := make([]arrow.Field, len(fields))
	for i, f := range fields {
		out[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: true}
	}
	return arrow.NewSchema(out, nil)
}

func buildRecord(mem memory.Allocator, schema *arrow.Schema, fields plan.Schema, rows [][]any) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i := range fields {
		fb := b.Field(i)
		for _, row := range rows {
			v := row[i]
			if v == nil {
				fb.AppendNull()
				continue
			}
			switch fb := fb.(type) {
			case *array.Int64Builder:
				n, ok := v.(int64)
				if !ok {
					return nil, fmt.Errorf("column %s: want int64, got %T", fields[i].Name, v)
				}
				fb.Append(n)
			case *array.Float64Builder:
				f, ok := v.(float64)
				if !ok {
					return nil, fmt.Errorf("column %s: want float64, got %T", fields[i].Name, v)
				}
				fb.Append(f)
			case *array.BooleanBuilder:
				x, ok := v.(bool)
				if !ok {
					return nil, fmt.Errorf("column %s: want bool, got %T", fields[i].Name, v)
				}
				fb.Append(x)
			case *array.StringBuilder:
				s, ok := v.(string)
				if !ok {
					s = fmt.Sprint(v)
				}
				fb.Append(s)
			default:
				return nil, fmt.Errorf("column %s: unsupported builder %T", fields[i].Name, fb)
			}
		}
	}
	return b.NewRecord(), nil
}
