package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/glr/blobstore"
)

func TestStore_Keys(t *testing.T) {
	tests := []struct {
		root, prefix, want string
	}{
		{"", "", ""},
		{"", "pkg/", "pkg/"},
		{"classes/", "", "classes/"},
		{"classes", "", "classes/"},
		{"classes/", "pkg/", "classes/pkg/"},
		{"classes/", "Po", "classes/Po"},
	}
	for _, tt := range tests {
		s := NewStore(nil, "b", tt.root)
		assert.Equal(t, tt.want, s.listPrefix(tt.prefix), "root=%q prefix=%q", tt.root, tt.prefix)
	}

	s := NewStore(nil, "b", "classes/")
	assert.Equal(t, "classes/Point.glr", s.key("Point.glr"))
	assert.Equal(t, "pkg/Point.glr", s.relName("classes/pkg/Point.glr"))
	assert.Equal(t, "x.glr", NewStore(nil, "b", "").relName("x.glr"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-glr"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("$GLR hello minio world")
	require.NoError(t, store.Put(ctx, "pkg/Hello.glr", data))

	got, err := blobstore.Fetch(ctx, store, "pkg/Hello.glr")
	require.NoError(t, err)
	require.Equal(t, data, got)

	names, err := store.List(ctx, "pkg/")
	require.NoError(t, err)
	assert.Contains(t, names, "pkg/Hello.glr")

	require.NoError(t, store.Delete(ctx, "pkg/Hello.glr"))
	require.NoError(t, store.Delete(ctx, "pkg/Hello.glr"))

	_, err = store.Open(ctx, "pkg/Hello.glr")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
