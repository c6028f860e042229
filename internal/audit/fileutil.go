package audit

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WalkOptions controls which files Walk returns.
type WalkOptions struct {
	// Include lists file-name globs; a file is eligible when its base name
	// matches at least one. Empty means every file.
	Include []string
	// Exclude prunes a directory when its path contains, or glob-matches,
	// any entry.
	Exclude []string
	// Extensions restricts files by extension (case-insensitive, with dot).
	Extensions []string
	// OnError is told about entries that could not be visited. Optional.
	OnError func(path string, err error)
}

// Walk returns the eligible files under root in lexical walk order. Paths
// are root-joined, not relative. A root that cannot be read returns an
// error wrapping ErrIO.
func Walk(root string, opts WalkOptions) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIO, root, err)
	}

	extSet := toExtSet(opts.Extensions)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if opts.OnError != nil {
				opts.OnError(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && IsExcluded(path, opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// Linked files are scanned; linked directories are not entered.
			info, err := os.Stat(path)
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(path, err)
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if len(extSet) > 0 && !extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if len(opts.Include) > 0 && !IsIncluded(d.Name(), opts.Include) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("%w: walking %s: %v", ErrIO, root, err)
	}
	return files, nil
}

// IsIncluded reports whether the file name matches any glob pattern.
func IsIncluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// IsExcluded reports whether a directory path contains, or glob-matches,
// any of the patterns.
func IsExcluded(dirPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(dirPath, pattern) {
			return true
		}
		if matched, err := filepath.Match(pattern, dirPath); err == nil && matched {
			return true
		}
	}
	return false
}

// Anonymize keeps only the last depth segments of path. A depth below one
// returns path unchanged.
func Anonymize(path string, depth int) string {
	if depth < 1 || path == "" {
		return path
	}
	segments := strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' })
	if len(segments) <= depth {
		return strings.Join(segments, "/")
	}
	return strings.Join(segments[len(segments)-depth:], "/")
}

// toExtSet converts a slice of extensions into a lower-cased set.
func toExtSet(extensions []string) map[string]bool {
	if len(extensions) == 0 {
		return nil
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = true
	}
	return set
}
