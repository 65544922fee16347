package storage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopStore struct{}

func (nopStore) Upload(context.Context, string, string) error { return nil }
func (nopStore) Presign(context.Context, string, time.Duration) (string, error) {
	return "https://example.com/blob", nil
}
func (nopStore) Remove(context.Context, string) error { return nil }

func TestPipeline_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media/fax-123.pdf":
			_, _ = w.Write([]byte("%PDF-1.4 fake"))
		case "/redirect":
			http.Redirect(w, r, "/media/fax-123.pdf", http.StatusFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := storage.NewPipeline(nopStore{}, t.TempDir(), time.Hour)

	localPath, err := p.Fetch(context.Background(), srv.URL+"/media/fax-123.pdf")
	require.NoError(t, err)
	assert.Equal(t, "fax-123.pdf", filepath.Base(localPath))

	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestPipeline_Fetch_FollowsRedirects(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/final.pdf", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	p := storage.NewPipeline(nopStore{}, t.TempDir(), time.Hour)

	localPath, err := p.Fetch(context.Background(), srv.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, "final.pdf", filepath.Base(localPath))
}

func TestPipeline_Fetch_Non2xxFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := storage.NewPipeline(nopStore{}, t.TempDir(), time.Hour)

	_, err := p.Fetch(context.Background(), srv.URL+"/missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestPipeline_Fetch_EmptyPathUsesPlaceholder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	p := storage.NewPipeline(nopStore{}, t.TempDir(), time.Hour)

	localPath, err := p.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "attachment", filepath.Base(localPath))
}

func TestPipeline_Stage_SanitizesName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := storage.NewPipeline(nopStore{}, dir, time.Hour)

	localPath, err := p.Stage("../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd"), localPath)
}
