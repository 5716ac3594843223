package converter

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sotaro/manga2epub/internal/archive"
	"github.com/sotaro/manga2epub/internal/device"
	"github.com/sotaro/manga2epub/internal/epub"
	"github.com/sotaro/manga2epub/internal/metadata"
	"github.com/sotaro/manga2epub/internal/pages"
)

// Options holds the run configuration: collected once from prompts (or the
// metadata cache) and immutable for the rest of the run.
type Options struct {
	SourceDir  string
	WorkDir    string // extraction root, one subdirectory per archive
	OutputDir  string
	Metadata   metadata.Book
	Screen     device.Screen
	StartIndex int
}

// Pipeline converts comic archives into fixed-layout EPUB volumes, one
// archive at a time.
type Pipeline struct {
	opts Options
}

// New creates a conversion pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// UnitDir returns the working directory for one archive file.
func (p *Pipeline) UnitDir(file string) string {
	return filepath.Join(p.opts.WorkDir, file)
}

// Extract unpacks one archive into its working directory.
func (p *Pipeline) Extract(file string) error {
	src := filepath.Join(p.opts.SourceDir, file)
	if err := archive.Extract(src, p.UnitDir(file)); err != nil {
		return fmt.Errorf("extract %s: %w", file, err)
	}
	return nil
}

// PreparePages flattens the extracted tree, splits and normalizes every
// page, and returns the canonical reading-order page filenames. Pages whose
// normalization failed are excluded from the result.
func (p *Pipeline) PreparePages(file string) ([]string, error) {
	dir := p.UnitDir(file)
	if err := pages.Flatten(dir); err != nil {
		return nil, fmt.Errorf("flatten %s: %w", file, err)
	}

	skipped, err := pages.Normalize(dir, p.opts.Screen)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", file, err)
	}
	skip := make(map[string]bool, len(skipped))
	for _, name := range skipped {
		skip[name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list pages for %s: %w", file, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || skip[e.Name()] || !isPageImage(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no usable pages in %s", file)
	}
	return pages.Order(names), nil
}

// Assemble writes the EPUB for one archive from its ordered page list.
// pos is the archive's 0-based position among the units selected this run;
// the volume sequence number is startIndex + pos. On success the working
// directory is removed; on failure it is left for inspection.
func (p *Pipeline) Assemble(file string, pos int, ordered []string) (string, error) {
	dir := p.UnitDir(file)
	meta := p.opts.Metadata

	book := epub.Book{
		Title:         archive.DisplayTitle(file),
		Series:        meta.Series,
		Sequence:      p.opts.StartIndex + pos,
		Author:        meta.Author,
		AuthorFileAs:  meta.AuthorFileAs(),
		Genres:        meta.Genres,
		Publisher:     meta.Publisher,
		Language:      meta.Language,
		PageDirection: "rtl",
		Width:         p.opts.Screen.Width,
		Height:        p.opts.Screen.Height,
		CoverIndex:    0,
		ShowContents:  false,
	}
	for i, name := range ordered {
		book.Pages = append(book.Pages, epub.Page{
			ImagePath: filepath.Join(dir, name),
			Caption:   fmt.Sprintf("Page %d", i),
		})
	}

	outPath, err := epub.Write(book, p.opts.OutputDir)
	if err != nil {
		return "", fmt.Errorf("write epub for %s: %w", file, err)
	}
	if err := epub.Verify(outPath); err != nil {
		return "", fmt.Errorf("verify %s: %w", outPath, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove working directory %s: %w", dir, err)
	}
	return outPath, nil
}

// Convert runs all stages for one archive.
func (p *Pipeline) Convert(file string, pos int) (string, error) {
	if err := p.Extract(file); err != nil {
		return "", err
	}
	ordered, err := p.PreparePages(file)
	if err != nil {
		return "", err
	}
	return p.Assemble(file, pos, ordered)
}

// ConvertAll processes the selected archives in order. A failing unit is
// logged and skipped; the batch always runs to completion. It returns the
// number of failed units.
func (p *Pipeline) ConvertAll(files []string) int {
	failed := 0
	for i, file := range files {
		if _, err := p.Convert(file, i); err != nil {
			log.Printf("warning: %v", err)
			failed++
		}
	}
	return failed
}

// isPageImage reports whether a normalized page file can be embedded in the
// EPUB container.
func isPageImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	default:
		return false
	}
}
