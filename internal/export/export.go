// Package export turns the current plan into a JSON file.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/studyplan/studyplan/internal/clock"
	"github.com/studyplan/studyplan/internal/fsops"
	"github.com/studyplan/studyplan/internal/hash"
	"github.com/studyplan/studyplan/internal/logger"
	"github.com/studyplan/studyplan/internal/plan"
)

var (
	// ErrNoData is returned when there is no plan to export.
	ErrNoData = errors.New("no data to export")
	// ErrExport wraps every serialization or write failure.
	ErrExport = errors.New("export failed")
)

// Artifact is a serialized plan ready to be written.
type Artifact struct {
	Name string
	Data []byte
	// Digest is the SHA-256 of Data, checked again after writing.
	Digest string
}

type Service struct {
	clock clock.Clock
	fs    fsops.FS
	log   *logger.Logger
}

func NewService(clk clock.Clock, fs fsops.FS, log *logger.Logger) *Service {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	if fs == nil {
		fs = fsops.NewRealFS()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{clock: clk, fs: fs, log: log}
}

// FileName returns the artifact name for the given instant, using its UTC date.
func FileName(t time.Time) string {
	return fmt.Sprintf("study-plan-%s.json", t.UTC().Format("2006-01-02"))
}

// Export serializes m as two-space indented JSON, keys in model order.
// It never modifies m.
func (s *Service) Export(m *plan.Model) (*Artifact, error) {
	if m == nil {
		return nil, ErrNoData
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}

	data := buf.Bytes()
	return &Artifact{
		Name:   FileName(s.clock.Now()),
		Data:   data,
		Digest: hash.Bytes(data),
	}, nil
}

// Save writes a into dir and returns the written path.
func (s *Service) Save(a *Artifact, dir string) (string, error) {
	if a == nil {
		return "", ErrNoData
	}
	if err := fsops.ValidateFileName(a.Name); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	if dir == "" {
		dir = "."
	}
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create %s: %w", ErrExport, dir, err)
	}

	path := filepath.Join(dir, a.Name)
	if err := s.fs.AtomicWrite(path, a.Data, 0644); err != nil {
		s.log.Warn("export write failed", "path", path, "error", err)
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := s.verify(path, a); err != nil {
		s.log.Warn("export verification failed", "path", path, "error", err)
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	s.log.Debug("plan exported", "path", path, "bytes", len(a.Data), "sha256", hash.Short(a.Digest))
	return path, nil
}

// verify reads path back and compares its digest with the artifact's.
func (s *Service) verify(path string, a *Artifact) error {
	want := a.Digest
	if want == "" {
		want = hash.Bytes(a.Data)
	}
	written, err := s.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", path, err)
	}
	if got := hash.Bytes(written); got != want {
		return fmt.Errorf("%s does not match the exported plan (sha256 %s, want %s)", path, hash.Short(got), hash.Short(want))
	}
	return nil
}

// ExportTo exports m and saves it into dir.
func (s *Service) ExportTo(m *plan.Model, dir string) (string, error) {
	a, err := s.Export(m)
	if err != nil {
		return "", err
	}
	return s.Save(a, dir)
}
