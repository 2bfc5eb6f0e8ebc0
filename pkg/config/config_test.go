package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type sample struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
}

func (s *sample) Validate() error {
	if s.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadExpandsEnvAndValidates(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "folio")
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "name: ${SAMPLE_NAME}\nlimit: 3\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "folio" || s.Limit != 3 {
		t.Errorf("loaded = %+v", s)
	}

	writeFile(t, path, "limit: -1\n")
	if err := Load(path, &s); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadKeepsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "limit: 7\n")

	s := sample{Name: "preset"}
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "preset" || s.Limit != 7 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestReadStartsFromDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "name: edited\n")
	defaults := func() *sample { return &sample{Name: "default", Limit: 5} }

	s, err := Read(path, defaults)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Name != "edited" || s.Limit != 5 {
		t.Errorf("read = %+v", s)
	}

	writeFile(t, path, "limit: -2\n")
	if s, err := Read(path, defaults); s != nil || !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid file: got %+v, %v", s, err)
	}
	if _, err := Read(filepath.Join(t.TempDir(), "missing.yaml"), defaults); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
	writeFile(t, path, "name: [unclosed\n")
	if _, err := Read(path, defaults); err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("malformed yaml err = %v", err)
	}
}

func TestWatchReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "name: a\n")

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, slog.Default(), func() { calls.Add(1) })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "name: b\n")
	writeFile(t, path, "name: c\n")

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if calls.Load() != 1 {
		t.Errorf("onChange calls = %d, want 1 for one burst", calls.Load())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	writeFile(t, path, "name: a\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	go func() { _ = Watch(ctx, path, slog.Default(), func() { calls.Add(1) }) }()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	time.Sleep(400 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("onChange calls = %d, want 0", calls.Load())
	}
}
