package pages

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// chapterPattern matches folder names like "Chapter 5 - Title" or
// "chapter 4.5". The captured number becomes the filename prefix that the
// page orderer uses to group chapters.
var chapterPattern = regexp.MustCompile(`(?i)^chapter\s*(\d+(?:\.5)?)\b`)

// chapterPrefix extracts the chapter number from a directory name.
func chapterPrefix(dirName string) (string, bool) {
	m := chapterPattern.FindStringSubmatch(dirName)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Flatten relocates every leaf file under root into root itself, prefixing
// filenames with the parent folder's chapter number where the folder name
// matches the chapter pattern, then removes the emptied subdirectories.
//
// The tree is snapshotted before any mutation: walk first, then move, then
// delete bottom-up. Directories are removed with os.Remove only, so a
// directory that still holds files after the move pass fails loudly instead
// of being force-deleted.
func Flatten(root string) error {
	var leaves []string
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		leaves = append(leaves, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	for _, leaf := range leaves {
		parent := filepath.Dir(leaf)
		if parent == root {
			continue
		}
		name := filepath.Base(leaf)
		if prefix, ok := chapterPrefix(filepath.Base(parent)); ok {
			name = prefix + "." + name
		}
		dest := filepath.Join(root, name)
		if _, err := os.Lstat(dest); err == nil {
			return fmt.Errorf("flatten %s: destination %s already exists", leaf, dest)
		}
		if err := os.Rename(leaf, dest); err != nil {
			return fmt.Errorf("flatten %s: %w", leaf, err)
		}
	}

	// Deepest directories first so parents empty out before their turn.
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(os.PathSeparator)) > strings.Count(dirs[j], string(os.PathSeparator))
	})
	for _, dir := range dirs {
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("remove emptied directory %s: %w", dir, err)
		}
	}
	return nil
}
