package memory

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"nutriscan/internal/domain"
)

var _ domain.ImageStore = (*ImageStore)(nil)

type blob struct {
	contentType string
	data        []byte
}

// ImageStore keeps uploaded images in memory and serves them back over
// HTTP under baseURL.
type ImageStore struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]blob
}

// NewImageStore creates an image store whose URLs start with baseURL.
func NewImageStore(baseURL string) *ImageStore {
	return &ImageStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		blobs:   make(map[string]blob),
	}
}

// PutImage stores data under key and returns its URL.
func (s *ImageStore) PutImage(ctx context.Context, key, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := make([]byte, len(data))
	copy(b, data)
	s.blobs[key] = blob{contentType: contentType, data: b}
	return s.baseURL + "/" + escapeKey(key), nil
}

// escapeKey escapes each path segment but keeps the slashes.
func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

// ServeHTTP serves a stored image. The decoded request path is the object key.
func (s *ImageStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	b, ok := s.blobs[strings.TrimPrefix(r.URL.Path, "/")]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", b.contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(b.data)
}
