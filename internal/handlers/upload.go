package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// UploadHandler accepts issue photos and event posters and hands them to
// the configured object store.
type UploadHandler struct {
	uploader storage.Uploader
	maxBytes int64
}

func NewUploadHandler(uploader storage.Uploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploader: uploader, maxBytes: maxBytes}
}

var uploadFolders = map[string]bool{"issues": true, "events": true}

// Upload handles POST /api/uploads with the file in the "image" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	user := currentUser(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		respondError(c, apperr.Validation("choose an image to upload"))
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		respondError(c, apperr.Validationf("image must be at most %d MB", h.maxBytes>>20))
		return
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil || !strings.HasPrefix(mtype.String(), "image/") {
		respondError(c, apperr.Validation("only image files can be uploaded"))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		respondError(c, apperr.Transient("read upload", err))
		return
	}

	folder := c.DefaultPostForm("folder", "issues")
	if !uploadFolders[folder] {
		respondError(c, apperr.Validationf("unknown upload folder %q", folder))
		return
	}

	key := storage.ObjectKey(folder, user.ID, header.Filename, time.Now())
	url, err := h.uploader.Upload(c.Request.Context(), key, file, header.Size, func(sent, total int64) {
		slog.Debug("upload progress", "key", key, "sent", sent, "total", total)
	})
	if err != nil {
		respondError(c, apperr.Transient("upload image", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":          url,
		"key":          key,
		"content_type": mtype.String(),
		"size":         header.Size,
	})
}
