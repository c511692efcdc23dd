package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"musiclake/internal/datasource"
	"musiclake/internal/plan"
)

// Row is one decoded row keyed by column name, partition columns included.
type Row map[string]any

// ReadTable reads every Parquet file under prefix. Partition values are
// parsed from directory names and converted to the type partTypes gives
// them; columns not listed there stay strings. The default partition reads
// as nil. Rows come back in key order, then file order.
func ReadTable(ctx context.Context, st datasource.Store, prefix string, partTypes plan.Schema) ([]Row, error) {
	objs, err := st.List(ctx, prefix, true)
	if err != nil {
		return nil, err
	}
	base := datasource.DirPrefix(prefix)
	mem := memory.DefaultAllocator

	var out []Row
	for _, o := range objs {
		if !strings.HasSuffix(o.Key, ".parquet") {
			continue
		}
		rel := strings.TrimPrefix(o.Key, base)
		parts := parsePartitionDirs(rel)

		body, err := readAll(ctx, st, o.Key)
		if err != nil {
			return nil, err
		}
		tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(body), parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
		if err != nil {
			return nil, fmt.Errorf("columnar: read %s: %w", o.Key, err)
		}
		rows, err := tableRows(tbl)
		tbl.Release()
		if err != nil {
			return nil, fmt.Errorf("columnar: decode %s: %w", o.Key, err)
		}
		for _, r := range rows {
			for k, v := range parts {
				r[k] = typedPartition(v, partTypes, k)
			}
		}
		out = append(out, rows...)
	}
	return out, nil
}

func readAll(ctx context.Context, st datasource.Store, key string) ([]byte, error) {
	rc, err := st.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func typedPartition(v string, types plan.Schema, col string) any {
	if v == DefaultPartition {
		return nil
	}
	f, ok := types.Lookup(col)
	if !ok {
		return v
	}
	switch f.Type {
	case plan.TypeInt64:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case plan.TypeFloat64:
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			return x
		}
	case plan.TypeBool:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return v
}

func tableRows(tbl arrow.Table) ([]Row, error) {
	n := int(tbl.NumRows())
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{}
	}
	for c := 0; c < int(tbl.NumCols()); c++ {
		col := tbl.Column(c)
		name := col.Name()
		at := 0
		for _, chunk := range col.Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				v, err := valueAt(chunk, i)
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", name, err)
				}
				rows[at][name] = v
				at++
			}
		}
	}
	return rows, nil
}

func valueAt(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	}
	return nil, fmt.Errorf("unsupported array %s", arr.DataType())
}
