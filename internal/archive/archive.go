package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nwaples/rardecode"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrCorruptArchive    = errors.New("invalid or corrupt archive")
	ErrEmptyArchive      = errors.New("archive contains no files")
	// ErrWorkDirNotEmpty signals a leftover working directory from an
	// interrupted run. The user must clear it before retrying; merging
	// into partially processed state would scramble the page order.
	ErrWorkDirNotEmpty = errors.New("working directory already exists and is not empty")
)

// supportedExtensions lists the container formats accepted as input.
var supportedExtensions = []string{".cbz", ".cbr", ".zip", ".rar"}

// IsSupported reports whether path has a supported container extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range supportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// List returns the supported archive files in dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsSupported(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// DisplayTitle derives a volume title from an archive filename by stripping
// its container extension.
func DisplayTitle(name string) string {
	base := filepath.Base(name)
	if IsSupported(base) {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// Extract unpacks the archive at path into destDir, preserving the internal
// directory structure so chapter folders survive for the flattening pass.
//
// A pre-existing non-empty destDir is refused with ErrWorkDirNotEmpty.
func Extract(path, destDir string) error {
	if entries, err := os.ReadDir(destDir); err == nil && len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrWorkDirNotEmpty, destDir)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".cbz":
		return extractZip(path, destDir)
	case ".rar", ".cbr":
		return extractRar(path, destDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func extractZip(path, destDir string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer reader.Close()

	extracted := 0
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		dest, err := safeJoin(destDir, file.Name)
		if err != nil {
			return err
		}
		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("%w: open %s: %v", ErrCorruptArchive, file.Name, err)
		}
		err = writeEntry(dest, src)
		src.Close()
		if err != nil {
			return err
		}
		extracted++
	}
	if extracted == 0 {
		return ErrEmptyArchive
	}
	return nil
}

func extractRar(path, destDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	reader, err := rardecode.NewReader(f, "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	extracted := 0
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		if header.IsDir {
			continue
		}
		dest, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}
		if err := writeEntry(dest, reader); err != nil {
			return err
		}
		extracted++
	}
	if extracted == 0 {
		return ErrEmptyArchive
	}
	return nil
}

// safeJoin joins an archive-internal path onto base, rejecting absolute
// paths and traversal outside base.
func safeJoin(base, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: absolute entry path %s", ErrCorruptArchive, name)
	}
	dest := filepath.Join(base, filepath.FromSlash(name))
	cleanBase := filepath.Clean(base) + string(os.PathSeparator)
	if !strings.HasPrefix(filepath.Clean(dest)+string(os.PathSeparator), cleanBase) {
		return "", fmt.Errorf("%w: entry path escapes destination: %s", ErrCorruptArchive, name)
	}
	return dest, nil
}

func writeEntry(dest string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create entry directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("extract %s: %w", dest, err)
	}
	return nil
}
