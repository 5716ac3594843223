package main

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sotaro/manga2epub/internal/epub"
	"github.com/sotaro/manga2epub/internal/metadata"
)

func writeFixtureArchive(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 40; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if x > 5 && x < 35 && y > 5 && y < 75 {
				c = color.NRGBA{R: 10, G: 10, B: 10, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create("Chapter 1 - Intro/p1.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRunInteractiveFlow(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFixtureArchive(t, filepath.Join(srcDir, "Vol1.cbz"))

	// files: all; series: default; author: Jane Doe; genre: Action;
	// publisher: default; device: Kindle 1 (small screen keeps the test
	// fast); save: no; start index: 2.
	input := "a\n\nJane Doe\n1\n\n9\nn\n2\n"
	out := &bytes.Buffer{}

	err := run(srcDir, filepath.Join(root, "work"), filepath.Join(root, "epub"), strings.NewReader(input), out)
	if err != nil {
		t.Fatalf("run() error = %v\noutput:\n%s", err, out.String())
	}

	outPath := filepath.Join(root, "epub", "Vol1.epub")
	if err := epub.Verify(outPath); err != nil {
		t.Fatalf("generated epub invalid: %v", err)
	}
	r, err := epub.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	opf, err := r.ReadFile(r.OPFPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(opf), `property="group-position">2</meta>`) {
		t.Error("sequence should equal the prompted start index")
	}
	if _, err := os.Stat(filepath.Join(srcDir, metadata.CacheFile)); !os.IsNotExist(err) {
		t.Error("metadata cache should not be written when declined")
	}
}

func TestRunReusesCachedMetadata(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFixtureArchive(t, filepath.Join(srcDir, "Vol1.cbz"))
	if err := metadata.Save(filepath.Join(srcDir, metadata.CacheFile), &metadata.Book{
		Series:    "Cached Series",
		Author:    "Cached Author",
		Genres:    []string{"Drama"},
		Publisher: "Cached Pub",
		Device:    "Kindle 1",
		Language:  "en",
	}); err != nil {
		t.Fatal(err)
	}

	// files: all; reuse cache: default yes; start index: default 0.
	input := "a\n\n\n"
	out := &bytes.Buffer{}
	err := run(srcDir, filepath.Join(root, "work"), filepath.Join(root, "epub"), strings.NewReader(input), out)
	if err != nil {
		t.Fatalf("run() error = %v\noutput:\n%s", err, out.String())
	}

	r, err := epub.Open(filepath.Join(root, "epub", "Vol1.epub"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	opf, err := r.ReadFile(r.OPFPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(opf), "Cached Series") {
		t.Error("cached series should flow into the generated book")
	}
	if !strings.Contains(out.String(), "Cached Author") {
		t.Error("cached metadata should be rendered for confirmation")
	}
}

func TestRunEmptySourceDir(t *testing.T) {
	out := &bytes.Buffer{}
	if err := run(t.TempDir(), "work", "epub", strings.NewReader(""), out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "No supported archive files") {
		t.Error("expected message about missing archives")
	}
}
