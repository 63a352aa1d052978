package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"itemcatalog/internal/config"
	"itemcatalog/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 15, 0, time.FixedZone("CEST", 2*60*60))

	assert.Equal(t, "exports/2024/05/01/catalog-073015.json", ObjectKey(export.JSON, at))
	assert.Equal(t, "exports/2024/05/01/catalog-073015.yaml", ObjectKey(export.YAML, at))
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), &config.Config{})
	assert.Error(t, err)
}

func TestUploadRoundTrip(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}

	ctx := context.Background()
	store, err := New(ctx, &config.Config{
		MinioEndpoint:  endpoint,
		MinioAccessKey: os.Getenv("TEST_MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
		MinioBucket:    "catalog-exports-test",
	})
	require.NoError(t, err)

	document := []byte(`{"Category": []}`)
	key, err := store.Upload(ctx, export.JSON, time.Now(), document)
	require.NoError(t, err)
	defer store.Remove(ctx, key)

	got, err := store.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, document, got)
}
