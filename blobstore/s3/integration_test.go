package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/glr/blobstore"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test-glr-%d/", time.Now().UnixNano())
	store, err := NewDefaultStore(ctx, bucket, prefix)
	require.NoError(t, err)

	data := make([]byte, 1<<20)
	_, _ = rand.Read(data)

	require.NoError(t, store.Put(ctx, "big.glr", data))
	t.Cleanup(func() { _ = store.Delete(context.Background(), "big.glr") })

	got, err := blobstore.Fetch(ctx, store, "big.glr")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"big.glr"}, names)
}
