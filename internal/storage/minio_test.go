package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live MinIO when LIBRARY_TEST_MINIO_ENDPOINT is set, e.g.
// "localhost:9000" with the default minioadmin credentials.
func TestCoverStorageRoundTrip(t *testing.T) {
	endpoint := os.Getenv("LIBRARY_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("LIBRARY_TEST_MINIO_ENDPOINT not set")
	}
	ctx := context.Background()

	s, err := NewCoverStorage(ctx, MinioConfig{
		Endpoint:  endpoint,
		AccessKey: envOr("LIBRARY_TEST_MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("LIBRARY_TEST_MINIO_SECRET_KEY", "minioadmin"),
		Bucket:    "library-test-" + strings.ToLower(uuid.NewString()[:8]),
	}, slog.Default())
	require.NoError(t, err)

	body := []byte("cover bytes")
	key := "covers/1/" + uuid.NewString() + ".png"
	require.NoError(t, s.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "image/png"))

	link, err := s.PresignedGetURL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, link, "X-Amz-Signature")

	resp, err := http.Get(link)
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
