package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/studyplan/studyplan/internal/clock"
	"github.com/studyplan/studyplan/internal/controller"
	"github.com/studyplan/studyplan/internal/export"
	"github.com/studyplan/studyplan/internal/planclient"
	"github.com/studyplan/studyplan/internal/server"
)

var testNow = time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC)

// memFS is an in-memory fsops.FS.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

func newMemFS() *memFS {
	return &memFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (fs *memFS) MkdirAll(path string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		fs.dirs[p] = true
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}
	return nil
}

func (fs *memFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = append([]byte(nil), data...)
	return nil
}

func (fs *memFS) ReadFile(path string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if content, ok := fs.files[path]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, os.ErrNotExist
}

func (fs *memFS) Exists(path string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, isFile := fs.files[path]
	return isFile || fs.dirs[path], nil
}

// stack is the full client pipeline pointed at one plan service.
type stack struct {
	url      string
	clock    *clock.FakeClock
	fs       *memFS
	ctrl     *controller.Controller
	exporter *export.Service
}

// setupStack starts handler on an httptest server and wires the client,
// controller and exporter to it. A nil handler uses the reference
// plan service.
func setupStack(t *testing.T, handler http.Handler) *stack {
	t.Helper()
	if handler == nil {
		handler = server.New(server.Options{}).Handler()
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return setupStackAt(t, ts.URL)
}

func setupStackAt(t *testing.T, baseURL string) *stack {
	t.Helper()
	client, err := planclient.New(planclient.Options{BaseURL: baseURL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("planclient.New() error = %v", err)
	}
	clk := clock.NewFakeClock(testNow)
	ctrl, err := controller.New(controller.Options{
		Fetcher: client,
		Clock:   clk,
		BaseURL: baseURL,
	})
	if err != nil {
		t.Fatalf("controller.New() error = %v", err)
	}
	t.Cleanup(ctrl.Close)

	fs := newMemFS()
	return &stack{
		url:      baseURL,
		clock:    clk,
		fs:       fs,
		ctrl:     ctrl,
		exporter: export.NewService(clk, fs, nil),
	}
}

func readAll(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}
