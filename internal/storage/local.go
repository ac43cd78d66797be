package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader writes files under Dir and serves them from BaseURL. It is
// the fallback when no upload endpoint is configured.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

func (l *LocalUploader) Upload(ctx context.Context, key string, r io.Reader, size int64, progress Progress) (string, error) {
	dst := filepath.Join(l.Dir, filepath.FromSlash(key))
	if !strings.HasPrefix(dst, filepath.Clean(l.Dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, &countingReader{r: &ctxReader{ctx: ctx, r: r}, total: size, progress: progress}); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return strings.TrimRight(l.BaseURL, "/") + "/" + key, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
