package unit

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/planvista/planvista-backend/internal/imagecodec"
	"github.com/planvista/planvista-backend/internal/projects/repository"
	"github.com/planvista/planvista-backend/internal/storage/kv"
)

// memBlob is an in-memory BlobStore standing in for S3.
type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (m *memBlob) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.URL(key), nil
}

func (m *memBlob) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlob) URL(key string) string {
	return "https://blobs.test/" + key
}

func (m *memBlob) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// setupProjectRepo wires a repository against miniredis and the in-memory
// blob store.
func setupProjectRepo(t *testing.T) (*repository.ProjectRepository, *kv.Store, *memBlob) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := kv.NewStore(client)
	blob := newMemBlob()
	return repository.NewProjectRepository(store, blob, newTestLogger()), store, blob
}

// pngDataURL builds a small solid-color PNG wrapped in a data URL.
func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imagecodec.EncodeDataURL("image/png", buf.Bytes())
}

func projectID(n int) string {
	return fmt.Sprintf("17250000000%02d", n)
}
