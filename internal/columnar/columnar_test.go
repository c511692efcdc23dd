package columnar

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"musiclake/internal/datasource"
	"musiclake/internal/datasource/file"
	"musiclake/internal/engine"
	"musiclake/internal/plan"
)

func songsResult() *engine.Result {
	return &engine.Result{
		Schema: plan.Schema{
			{Name: "song_id", Type: plan.TypeString},
			{Name: "title", Type: plan.TypeString},
			{Name: "artist_id", Type: plan.TypeString},
			{Name: "year", Type: plan.TypeInt64},
			{Name: "duration", Type: plan.TypeFloat64},
		},
		Rows: [][]any{
			{"S1", "Intro", "AR1", int64(2000), 120.5},
			{"S2", "Outro", "AR1", int64(2000), nil},
			{"S3", "Again", "AR/2", int64(0), 99.0},
			{"S4", nil, nil, int64(1999), 1.0},
		},
	}
}

func listKeys(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestWrite_PartitionLayout(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	w := &Writer{Store: file.NewLocal(), Root: root}
	ctx := context.Background()

	st, err := w.Write(ctx, "songs", songsResult(), "year", "artist_id")
	require.NoError(t, err)
	require.Equal(t, Stats{Rows: 4, Files: 3, Partitions: 3}, st)

	keys := listKeys(t, root+"/songs")
	var dirs []string
	for _, k := range keys {
		if k == SuccessMarker {
			continue
		}
		require.True(t, strings.HasPrefix(filepath.Base(k), "part-00000-"), k)
		require.True(t, strings.HasSuffix(k, ".snappy.parquet"), k)
		dirs = append(dirs, filepath.ToSlash(filepath.Dir(k)))
	}
	require.Equal(t, []string{
		"year=0/artist_id=AR%2F2",
		"year=1999/artist_id=" + DefaultPartition,
		"year=2000/artist_id=AR1",
	}, uniq(dirs))
	require.Contains(t, keys, SuccessMarker)

	rows, err := ReadTable(ctx, w.Store, root+"/songs", plan.Schema{{Name: "year", Type: plan.TypeInt64}})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byID := map[any]Row{}
	for _, r := range rows {
		byID[r["song_id"]] = r
	}
	require.Equal(t, Row{"song_id": "S3", "title": "Again", "duration": 99.0, "year": int64(0), "artist_id": "AR/2"}, byID["S3"])
	require.Equal(t, Row{"song_id": "S4", "title": nil, "duration": 1.0, "year": int64(1999), "artist_id": nil}, byID["S4"])
	require.Nil(t, byID["S2"]["duration"])
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func TestWrite_PartitionColumnsLeaveFiles(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	w := &Writer{Store: file.NewLocal(), Root: root}
	ctx := context.Background()

	_, err := w.Write(ctx, "songs", songsResult(), "year", "artist_id")
	require.NoError(t, err)

	rows, err := ReadTable(ctx, w.Store, root+"/songs/year=2000/artist_id=AR1", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		_, hasYear := r["year"]
		_, hasArtist := r["artist_id"]
		require.False(t, hasYear || hasArtist, "partition columns must not be stored in files: %v", r)
	}
}

func TestWrite_OverwriteAndIdempotentBytes(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	w := &Writer{Store: file.NewLocal(), Root: root}
	ctx := context.Background()

	stale := filepath.Join(filepath.FromSlash(root), "songs", "year=1900", "old.parquet")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	_, err := w.Write(ctx, "songs", songsResult(), "year", "artist_id")
	require.NoError(t, err)
	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err), "stale file survived overwrite")

	first := snapshot(t, root+"/songs")
	_, err = w.Write(ctx, "songs", songsResult(), "year", "artist_id")
	require.NoError(t, err)
	require.Equal(t, first, snapshot(t, root+"/songs"))
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, k := range listKeys(t, root) {
		b, err := os.ReadFile(filepath.Join(filepath.FromSlash(root), filepath.FromSlash(k)))
		require.NoError(t, err)
		out[k] = string(b)
	}
	return out
}

func TestWrite_EmptyResultWritesOnlyMarker(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	w := &Writer{Store: file.NewLocal(), Root: root}
	ctx := context.Background()

	res := &engine.Result{Schema: songsResult().Schema}
	st, err := w.Write(ctx, "songs", res, "year", "artist_id")
	require.NoError(t, err)
	require.Equal(t, Stats{}, st)
	require.Equal(t, []string{SuccessMarker}, listKeys(t, root+"/songs"))

	rows, err := ReadTable(ctx, w.Store, root+"/songs", nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestWrite_UnknownPartitionColumn(t *testing.T) {
	w := &Writer{Store: file.NewLocal(), Root: filepath.ToSlash(t.TempDir())}
	_, err := w.Write(context.Background(), "songs", songsResult(), "genre")
	require.Error(t, err)
}

func TestWrite_BoolColumnsAndNoPartitions(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	w := &Writer{Store: file.NewLocal(), Root: root}
	ctx := context.Background()

	res := &engine.Result{
		Schema: plan.Schema{{Name: "flag", Type: plan.TypeBool}, {Name: "n", Type: plan.TypeNull}},
		Rows:   [][]any{{true, nil}, {nil, nil}},
	}
	st, err := w.Write(ctx, "flags", res)
	require.NoError(t, err)
	require.Equal(t, 1, st.Files)

	rows, err := ReadTable(ctx, w.Store, datasource.Join(root, "flags"), nil)
	require.NoError(t, err)
	require.Equal(t, []Row{{"flag": true, "n": nil}, {"flag": nil, "n": nil}}, rows)
}

func TestPartitionEscaping(t *testing.T) {
	cases := map[string]string{
		"AC/DC":         "AC%2FDC",
		"a=b":           "a%3Db",
		"100%":          "100%25",
		"Guns N' Roses": "Guns N%27 Roses",
		"Björk":         "Björk",
		"what?":         "what%3F",
		"tab\there":     "tab%09here",
	}
	for in, want := range cases {
		got := partitionValue(in)
		require.Equal(t, want, got, in)
		require.Equal(t, in, unescapePathValue(got))
	}
	require.Equal(t, DefaultPartition, partitionValue(""))
	require.Equal(t, DefaultPartition, partitionValue(nil))
	require.Equal(t, "2018", partitionValue(int64(2018)))
	require.Equal(t, "year=2018/month=11", partitionPath([]string{"year", "month"}, []any{int64(2018), int64(11)}))
	require.Equal(t, map[string]string{"name": "AC/DC"}, parsePartitionDirs("name=AC%2FDC/part.parquet"))
}
