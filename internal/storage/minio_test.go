package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjects is an in-memory objectClient.
type fakeObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	failPuts bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.failPuts {
		return minio.UploadInfo{}, errors.New("connection reset")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, bucket, key string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	return nil
}

func TestMinIOPutGet(t *testing.T) {
	fake := newFakeObjects()
	store := newMinIO(fake, "images", "http://localhost:8080")
	ctx := context.Background()

	n, err := store.Put(ctx, "thumbnails/u1/img/1.jpg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "image/jpeg", fake.types["images/thumbnails/u1/img/1.jpg"])

	rc, err := store.Get(ctx, "thumbnails/u1/img/1.jpg")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), got)
}

func TestMinIOMissingKey(t *testing.T) {
	store := newMinIO(newFakeObjects(), "images", "http://localhost:8080")
	ctx := context.Background()

	_, err := store.Get(ctx, "originals/none.png")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := store.Exists(ctx, "originals/none.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMinIODelete(t *testing.T) {
	store := newMinIO(newFakeObjects(), "images", "http://localhost:8080")
	ctx := context.Background()

	_, err := store.Put(ctx, "originals/a.png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "originals/a.png"))

	exists, err := store.Exists(ctx, "originals/a.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMinIOPutFailure(t *testing.T) {
	fake := newFakeObjects()
	fake.failPuts = true
	store := newMinIO(fake, "images", "http://localhost:8080")

	_, err := store.Put(context.Background(), "originals/a.png", bytes.NewReader([]byte("png")))
	assert.Error(t, err)
}

func TestMinIOURL(t *testing.T) {
	store := newMinIO(newFakeObjects(), "images", "https://img.example.com")
	assert.Equal(t, "https://img.example.com/media/originals/a.png", store.URL("originals/a.png"))
}
