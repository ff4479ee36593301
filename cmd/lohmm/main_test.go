package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/lohmm-traces/internal/artifact"
	"github.com/ashureev/lohmm-traces/internal/config"
	"github.com/ashureev/lohmm-traces/internal/corpus"
	"github.com/ashureev/lohmm-traces/internal/normalize"
	"github.com/ashureev/lohmm-traces/internal/store"
)

const sampleTrace = "S Mon Nov 10 16:44:40 1986\nE Mon Nov 10 17:02:37 1986\n" +
	"C mkdir a\nD /user/alice/home\nA NIL\n" +
	"C cp a b\nD /user/alice/home\nA NIL\n" +
	"\nS Mon Nov 10 18:00:00 1986\nE Mon Nov 10 18:10:00 1986\n" +
	"C ls\nD /user/alice/home\nA NIL\n"

// setupCorpus writes a one-file corpus and points the environment at it.
func setupCorpus(t *testing.T) (outDir, dbPath string) {
	t.Helper()
	root := t.TempDir()
	corpusDir := filepath.Join(root, "corpus")
	if err := os.MkdirAll(corpusDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(corpusDir, "scientist-1"), []byte(sampleTrace), 0o644); err != nil {
		t.Fatalf("write trace: %v", err)
	}

	outDir = filepath.Join(root, "out")
	dbPath = filepath.Join(root, "data", "lohmm.db")
	t.Setenv("LOHMM_CORPUS_DIR", corpusDir)
	t.Setenv("LOHMM_SOURCE_PREFIX", "scientist-")
	t.Setenv("LOHMM_SOURCE_FIRST", "1")
	t.Setenv("LOHMM_SOURCE_LAST", "1")
	t.Setenv("LOHMM_OUTPUT_DIR", outDir)
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")
	return outDir, dbPath
}

func TestRunDispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", []string{"lohmm"}, exitInvalidInput},
		{"version", []string{"lohmm", "version"}, exitOK},
		{"help", []string{"lohmm", "--help"}, exitOK},
		{"unknown", []string{"lohmm", "unknown"}, exitInvalidInput},
		{"normalize help", []string{"lohmm", "normalize", "-help"}, exitOK},
		{"serve help", []string{"lohmm", "serve", "-help"}, exitOK},
		{"bad flag", []string{"lohmm", "normalize", "-bogus"}, exitInvalidInput},
		{"positional", []string{"lohmm", "normalize", "extra"}, exitInvalidInput},
		{"bad window", []string{"lohmm", "normalize", "-window", "-1"}, exitInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", "error")
			if code := run(tt.args); code != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, code, tt.want)
			}
		})
	}
}

func TestRunNormalizeWritesOutputs(t *testing.T) {
	outDir, dbPath := setupCorpus(t)

	if code := run([]string{"lohmm", "normalize", "-workers", "2"}); code != exitOK {
		t.Fatalf("normalize exit = %d", code)
	}

	examples, err := os.ReadFile(filepath.Join(outDir, "lohmm_examples.dat"))
	if err != nil {
		t.Fatalf("read examples: %v", err)
	}
	want := "lohmm([mkdir('/user/alice/home/a'), cp('/user/alice/home/a', '/user/alice/home/b')]).\n"
	if string(examples) != want {
		t.Errorf("examples = %q, want %q", examples, want)
	}

	decls, err := os.ReadFile(filepath.Join(outDir, "lohmm_dir_domain.txt"))
	if err != nil {
		t.Fatalf("read domain: %v", err)
	}
	if !strings.HasPrefix(string(decls), "values(mu(mkdir/2, 1), ['/user/alice/home/a', '/user/alice/home/b']).\n") {
		t.Errorf("domain = %q", decls)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "lohmm_manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest artifact.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.Stats.KeptSessions != 1 || manifest.Stats.NoAnchorSessions != 1 {
		t.Errorf("manifest stats = %+v", manifest.Stats)
	}
	if len(manifest.Files) != 2 || manifest.Files[0].SHA256 != artifact.Digest(examples) {
		t.Errorf("manifest files = %+v", manifest.Files)
	}

	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = repo.Close() }()

	runs, err := repo.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %v, %v", runs, err)
	}
	if runs[0].RunID != manifest.RunID || runs[0].ManifestDigest != artifact.Digest(raw) {
		t.Errorf("stored run = %+v", runs[0])
	}
	sessions, err := repo.ListSessions(context.Background(), runs[0].RunID, 0, 0)
	if err != nil || len(sessions) != 1 || sessions[0].Fact+"\n" != want {
		t.Errorf("stored sessions = %+v, %v", sessions, err)
	}
}

func TestRunNormalizeNoStore(t *testing.T) {
	_, dbPath := setupCorpus(t)

	if code := run([]string{"lohmm", "normalize", "-no-store"}); code != exitOK {
		t.Fatalf("normalize exit = %d", code)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("database created with -no-store: %v", err)
	}
}

func TestRunNormalizeMissingSource(t *testing.T) {
	setupCorpus(t)
	if code := run([]string{"lohmm", "normalize", "-last", "2", "-no-store"}); code != exitInvalidInput {
		t.Errorf("exit = %d, want %d", code, exitInvalidInput)
	}
}

func TestRouter(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "lohmm.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = repo.Close() }()

	cfg := &config.Config{CORSOrigins: []string{"*"}}
	runner := corpus.NewRunner(normalize.NewPipeline(normalize.DefaultWindow, nil), 1, nil)
	srv := httptest.NewServer(newRouter(cfg, repo, runner, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/normalize", "text/plain", strings.NewReader(sampleTrace))
	if err != nil {
		t.Fatalf("POST /api/normalize: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("normalize status = %d", resp.StatusCode)
	}
	var body struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Paths) != 2 {
		t.Errorf("paths = %v", body.Paths)
	}

	runs, err := repo.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 0 {
		t.Errorf("posted transcript was persisted: %v, %v", runs, err)
	}
}
