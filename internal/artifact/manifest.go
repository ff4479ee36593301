package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// SchemaVersion identifies the manifest layout.
const SchemaVersion = "lohmm.manifest/v1"

// File is one output file of a run.
type File struct {
	Name    string
	Content []byte
}

// FileDigest describes a written file.
type FileDigest struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Bytes  int    `json:"bytes"`
}

// Manifest records what a run read and wrote.
type Manifest struct {
	SchemaVersion string       `json:"schema_version"`
	RunID         string       `json:"run_id"`
	CreatedAt     string       `json:"created_at"`
	Window        int          `json:"window"`
	Sources       []string     `json:"sources"`
	Stats         domain.Stats `json:"stats"`
	Files         []FileDigest `json:"files"`
}

// NewManifest describes run.
func NewManifest(run *domain.Run) *Manifest {
	sources := run.Sources
	if sources == nil {
		sources = []string{}
	}
	return &Manifest{
		SchemaVersion: SchemaVersion,
		RunID:         run.RunID,
		CreatedAt:     run.StartedAt.UTC().Format(time.RFC3339),
		Window:        run.Window,
		Sources:       sources,
		Stats:         run.Stats,
		Files:         []FileDigest{},
	}
}

// Canonical returns the RFC 8785 form of the manifest and its sha256 digest.
func (m *Manifest) Canonical() ([]byte, string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, "", fmt.Errorf("marshal manifest: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, "", fmt.Errorf("canonicalize manifest: %w", err)
	}
	return canonical, Digest(canonical), nil
}

// Digest returns the hex sha256 of content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// WriteBundle writes files into dir, records their digests in m and writes
// the canonical manifest last under manifestName. It returns the manifest digest.
func WriteBundle(dir, manifestName string, m *Manifest, files ...File) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	m.Files = make([]FileDigest, 0, len(files))
	for _, f := range files {
		if err := WriteFileAtomic(filepath.Join(dir, f.Name), f.Content, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", f.Name, err)
		}
		m.Files = append(m.Files, FileDigest{
			Name:   f.Name,
			SHA256: Digest(f.Content),
			Bytes:  len(f.Content),
		})
	}

	canonical, digest, err := m.Canonical()
	if err != nil {
		return "", err
	}
	if err := ValidateManifest(canonical); err != nil {
		return "", err
	}
	if err := WriteFileAtomic(filepath.Join(dir, manifestName), canonical, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return digest, nil
}
