// Package storage uploads issue photos and event posters and returns the URL
// they are served from.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

// Progress receives bytes sent so far and the total size (-1 if unknown).
type Progress func(sent, total int64)

type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, progress Progress) (string, error)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds "{folder}/{uid}/{unix-millis}-{name}" with name reduced
// to a safe character set.
func ObjectKey(folder string, userID uint, name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeName.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == "_" {
		base = "upload"
	}
	return fmt.Sprintf("%s/%d/%d-%s", folder, userID, now.UnixMilli(), base)
}

// countingReader reports progress as the body is consumed.
type countingReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress Progress
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		if c.progress != nil {
			c.progress(c.sent, c.total)
		}
	}
	return n, err
}
