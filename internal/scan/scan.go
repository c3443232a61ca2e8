// Package scan lists the image files of a single folder in a stable order.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultExtensions is the image extension allowlist.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tif", ".tiff"}

// Entry is one candidate image file.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// SetupError reports that the target folder cannot be scanned at all. It is
// fatal: no grouping happens.
type SetupError struct {
	Folder string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("cannot scan folder %s: %v", e.Folder, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// List returns the files directly inside folder whose extension is in exts
// (case-insensitive), sorted lexicographically by path. Subdirectories are not
// descended into. An empty result is not an error.
//
// Entries whose metadata cannot be read are still returned with a zero size so
// that the failure surfaces per file when it is fingerprinted.
func List(folder string, exts []string) ([]Entry, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[normalizeExt(ext)] = true
	}

	info, err := os.Stat(folder)
	if err != nil {
		return nil, &SetupError{Folder: folder, Err: err}
	}
	if !info.IsDir() {
		return nil, &SetupError{Folder: folder, Err: fmt.Errorf("not a directory")}
	}

	dirEntries, err := os.ReadDir(folder)
	if err != nil {
		return nil, &SetupError{Folder: folder, Err: err}
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !allowed[strings.ToLower(filepath.Ext(de.Name()))] {
			continue
		}
		path := filepath.Join(folder, de.Name())

		fi, err := os.Stat(path)
		if err != nil {
			entries = append(entries, Entry{Path: path})
			continue
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{Path: path, Size: fi.Size(), ModTime: fi.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// NormalizeExtensions lowercases exts and ensures a leading dot.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		if n := normalizeExt(ext); n != "." {
			out = append(out, n)
		}
	}
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
