package posts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxCoverSize is the largest accepted cover image.
const MaxCoverSize = 10 << 20

// CoverStorage is the part of storage.Store used for cover images.
type CoverStorage interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// coverKey builds covers/YYYY/MM/<uuid8><ext>.
func coverKey(now time.Time, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("covers/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.New().String()[:8], ext)
}

func (h *Handler) uploadCover(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.covers == nil {
		jsonutil.Error(w, http.StatusServiceUnavailable, "cover storage is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.authorize(ctx, r, id); err != nil {
		h.errLog.Write(w, r, "failed to load post", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxCoverSize+(1<<20))
	if err := r.ParseMultipartForm(MaxCoverSize); err != nil {
		jsonutil.BadRequest(w, "cover image too large (max 10MB)")
		return
	}
	file, header, err := r.FormFile("cover")
	if err != nil {
		jsonutil.ValidationError(w, map[string]string{"cover": "Cover image is required."})
		return
	}
	defer file.Close()

	if header.Size > MaxCoverSize {
		jsonutil.BadRequest(w, "cover image too large (max 10MB)")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		jsonutil.ValidationError(w, map[string]string{"cover": "Cover must be an image."})
		return
	}

	key := coverKey(time.Now().UTC(), header.Filename)
	if err := h.covers.Put(ctx, key, file, &storage.PutOptions{ContentType: contentType}); err != nil {
		h.errLog.Log(r, "failed to store cover image", err)
		jsonutil.Error(w, http.StatusBadGateway, "failed to store cover image")
		return
	}

	url := h.covers.URL(key)
	previous, err := h.posts.SetCover(ctx, id, url, key)
	if err != nil {
		h.removeCover(key)
		h.errLog.Write(w, r, "failed to set cover image", err)
		return
	}
	if previous != "" && previous != key {
		h.removeCover(previous)
	}

	jsonutil.OK(w, coverResponse{CoverImage: url})
}

// removeCover deletes a stored cover. Failures are logged and left behind.
func (h *Handler) removeCover(key string) {
	if h.covers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	if err := h.covers.Delete(ctx, key); err != nil {
		h.logger.Warn("failed to remove cover image", zap.String("key", key), zap.Error(err))
	}
}
