package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"
)

// RemoteUploader posts files to an unsigned multipart upload endpoint
// (Cloudinary style: fields "file", "upload_preset", "public_id").
type RemoteUploader struct {
	Endpoint string
	Preset   string
	Client   *http.Client
}

func NewRemoteUploader(endpoint, preset string) *RemoteUploader {
	return &RemoteUploader{
		Endpoint: endpoint,
		Preset:   preset,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (u *RemoteUploader) Upload(ctx context.Context, key string, r io.Reader, size int64, progress Progress) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// stream the body so progress follows the network write
	go func() {
		err := func() error {
			if u.Preset != "" {
				if err := mw.WriteField("upload_preset", u.Preset); err != nil {
					return err
				}
			}
			publicID := strings.TrimSuffix(key, path.Ext(key))
			if err := mw.WriteField("public_id", publicID); err != nil {
				return err
			}
			part, err := mw.CreateFormFile("file", path.Base(key))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, &countingReader{r: r, total: size, progress: progress}); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.Client.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("upload rejected: %s", msg)
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload response carried no url")
	}
	return out.URL, nil
}
