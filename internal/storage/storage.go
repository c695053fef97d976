// Package storage keeps uploaded images on local disk and serves them back.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/apperr"
)

const (
	BucketAvatars    = "avatars"
	BucketThumbnails = "thumbnails"

	DefaultMaxBytes = 5 << 20
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Local struct {
	dir      string
	baseURL  string
	maxBytes int64
	logger   *slog.Logger
}

// NewLocal stores files under dir and builds public URLs from baseURL
// (for example "/storage").
func NewLocal(dir, baseURL string, maxBytes int64, logger *slog.Logger) (*Local, error) {
	if dir == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes, logger: logger}, nil
}

// Save writes an image for owner into bucket and returns its public URL. The
// content type is sniffed from the data, not trusted from the client.
func (l *Local) Save(ctx context.Context, bucket, owner string, r io.Reader) (string, error) {
	if bucket != BucketAvatars && bucket != BucketThumbnails {
		return "", apperr.Validation("bucket", "desconhecido")
	}

	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", apperr.Validation("file", "arquivo vazio")
	}
	if int64(len(data)) > l.maxBytes {
		return "", apperr.Validation("file", fmt.Sprintf("máximo de %d bytes", l.maxBytes))
	}
	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", apperr.Validation("file", "formato de imagem não suportado")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := safeName(owner) + "-" + uuid.NewString() + ext
	dst := filepath.Join(l.dir, bucket, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	l.logger.Info("storage: saved", "bucket", bucket, "name", name, "bytes", len(data))
	return path.Join(l.baseURL, bucket, name), nil
}

// Handler serves stored files. Mount it under the base URL with the prefix
// stripped. Directory listings are refused.
func (l *Local) Handler() http.Handler {
	fs := http.FileServer(http.Dir(l.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func safeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
