package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestRunSoftware(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "layers.png")
	scene := filepath.Join(dir, "scene.png")
	if err := run("software", 420, 240, 3, out, scene, true); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, path := range []string{out, scene} {
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(f)
		_ = f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if got := img.Bounds().Size(); got.X != 420 || got.Y != 240 {
			t.Errorf("%s size = %v, want 420x240", filepath.Base(path), got)
		}
	}
}

func TestRunUnknownBackend(t *testing.T) {
	if err := run("nope", 8, 8, 1, filepath.Join(t.TempDir(), "x.png"), "", false); err == nil {
		t.Error("run(unknown backend) error = nil")
	}
}
