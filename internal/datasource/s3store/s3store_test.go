package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket that pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes int
}

func newFake(keys ...string) *fakeS3 {
	f := &fakeS3{objects: map[string][]byte{}}
	for _, k := range keys {
		f.objects[k] = []byte(k)
	}
	return f
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)
	var keys []string
	for k := range f.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if delim != "" && strings.Contains(k[len(prefix):], delim) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start = sort.SearchStrings(keys, tok)
	}
	end := min(start+2, len(keys))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestList(t *testing.T) {
	f := newFake(
		"log_data/2018/11/a.json",
		"log_data/2018/11/b.json",
		"log_data/top.json",
		"song_data/A/x.json",
		"log_data/dir/",
	)
	st := New(f, "udacity-dend")
	ctx := context.Background()

	objs, err := st.List(ctx, "log_data", true)
	require.NoError(t, err)
	var keys []string
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	require.Equal(t, []string{"log_data/2018/11/a.json", "log_data/2018/11/b.json", "log_data/top.json"}, keys)

	objs, err = st.List(ctx, "log_data/", false)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.Equal(t, "log_data/top.json", objs[0].Key)
	require.EqualValues(t, len("log_data/top.json"), objs[0].Size)
}

func TestOpenPutAndMissing(t *testing.T) {
	f := newFake()
	st := New(f, "lake")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "out/songs/_SUCCESS", []byte{}))
	require.NoError(t, st.Put(ctx, "out/songs/part-0.parquet", []byte("PAR1")))

	rc, err := st.Open(ctx, "out/songs/part-0.parquet")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "PAR1", string(b))

	_, err = st.Open(ctx, "out/missing")
	require.True(t, errors.Is(err, fs.ErrNotExist), "err = %v", err)
}

func TestDeletePrefix(t *testing.T) {
	f := newFake("out/songs/a", "out/songs/year=2000/b", "out/artists/c")
	st := New(f, "lake")
	ctx := context.Background()

	require.NoError(t, st.DeletePrefix(ctx, "out/songs"))
	require.Equal(t, 1, f.deletes)
	_, ok := f.objects["out/artists/c"]
	require.True(t, ok, "sibling table must survive")
	require.Len(t, f.objects, 1)

	require.Error(t, st.DeletePrefix(ctx, "/"))
}
