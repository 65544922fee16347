package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/util"
	"go.uber.org/zap"
)

// Pipeline moves attachment bytes between the carrier, the local
// staging directory, and the object store.
type Pipeline struct {
	store      ObjectStore
	httpClient *http.Client
	stagingDir string
	presignTTL time.Duration
}

func NewPipeline(store ObjectStore, stagingDir string, presignTTL time.Duration) *Pipeline {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &Pipeline{
		store:      store,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		stagingDir: stagingDir,
		presignTTL: presignTTL,
	}
}

// StagingDir returns the directory staged files are written to.
func (p *Pipeline) StagingDir() string { return p.stagingDir }

// Fetch downloads a remote attachment into the staging directory and
// returns the local path. Redirects are followed; any non-2xx status is
// a hard failure.
func (p *Pipeline) Fetch(ctx context.Context, remoteURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", remoteURL, err)
	}

	res, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", remoteURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return "", fmt.Errorf("fetch %s: status=%d", remoteURL, res.StatusCode)
	}

	name := "attachment"
	if u, err := url.Parse(remoteURL); err == nil {
		if base := util.SanitizeFilename(path.Base(u.Path)); base != "" {
			name = base
		}
	}

	return p.Stage(name, res.Body)
}

// Stage writes an attachment into the staging directory under a
// sanitized file name and returns the local path.
func (p *Pipeline) Stage(name string, r io.Reader) (string, error) {
	name = util.SanitizeFilename(name)
	if name == "" {
		name = "attachment"
	}
	filePath := filepath.Join(p.stagingDir, name)

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(filePath)
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}

	return filePath, nil
}

// Upload pushes a staged file to the object store under key.
func (p *Pipeline) Upload(ctx context.Context, localPath, key string) error {
	return p.store.Upload(ctx, localPath, key)
}

// Presign produces a time-limited retrieval URL for key.
func (p *Pipeline) Presign(ctx context.Context, key string) (string, error) {
	return p.store.Presign(ctx, key, p.presignTTL)
}

// DeleteRemote removes a blob from the object store. Best effort: a
// missed purge is storage hygiene, not correctness.
func (p *Pipeline) DeleteRemote(ctx context.Context, key string) {
	if err := p.store.Remove(ctx, key); err != nil {
		logger.Log.Warn("remote purge failed", zap.String("key", key), zap.Error(err))
	}
}
