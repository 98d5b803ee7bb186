package image

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SupportedImageExtensions returns the extensions the registered decoders
// understand. Scanning does not filter on them; they are informational.
func SupportedImageExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
}

// HasImageExtension reports whether path has a supported image extension.
func HasImageExtension(path string) bool {
	return slices.Contains(SupportedImageExtensions(), strings.ToLower(filepath.Ext(path)))
}

// ListFiles returns every regular file directly under dirPath, joined with
// dirPath, in directory order (sorted by name). It does not recurse into
// subdirectories, but follows symlinks.
func ListFiles(dirPath string) ([]string, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access image directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		fullPath := filepath.Join(dirPath, entry.Name())

		// Stat the target so symlinked files count and symlinked directories
		// are skipped.
		info, err := os.Stat(fullPath)
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, fullPath)
	}

	return files, nil
}
