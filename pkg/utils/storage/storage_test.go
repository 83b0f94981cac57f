package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root, "/media/")
	require.NoError(t, err)

	ref, err := s.Put(ctx, "ads/2024/06/01/a.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/media/ads/2024/06/01/a.png", ref)

	data, err := os.ReadFile(filepath.Join(root, "ads", "2024", "06", "01", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, s.Delete(ctx, ref))
	assert.ErrorIs(t, s.Delete(ctx, ref), ErrBlobNotFound)
}

func TestLocalStore_KeysStayUnderRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(filepath.Join(root, "media"), "/media")
	require.NoError(t, err)

	_, err = s.Put(ctx, "../../escape.png", "image/png", []byte("x"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "media", "escape.png"))
	assert.NoError(t, err)

	_, err = s.Put(ctx, "", "image/png", []byte("x"))
	assert.Error(t, err)
}

type recorded struct {
	method      string
	path        string
	contentType string
	body        string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: string(body)})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func TestS3Store_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	srv, requests := fakeS3(t)

	s, err := NewS3Store(ctx, S3Config{
		Bucket:    "ijara-media",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	ref, err := s.Put(ctx, "ads/2024/06/01/b.webp", "image/webp", []byte("webp-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/ads/2024/06/01/b.webp", ref)

	require.NoError(t, s.Delete(ctx, ref))

	reqs := requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/ijara-media/ads/2024/06/01/b.webp", reqs[0].path)
	assert.Equal(t, "image/webp", reqs[0].contentType)
	assert.Equal(t, "webp-bytes", reqs[0].body)
	assert.Equal(t, http.MethodDelete, reqs[1].method)
	assert.Equal(t, "/ijara-media/ads/2024/06/01/b.webp", reqs[1].path)
}

func TestS3Store_DefaultPublicURL(t *testing.T) {
	s, err := NewS3Store(context.Background(), S3Config{Bucket: "b", Region: "eu-central-1", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "ads/x.png", s.objectKey("https://b.s3.eu-central-1.amazonaws.com/ads/x.png"))
}
