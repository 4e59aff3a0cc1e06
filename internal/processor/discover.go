package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Supported image file extensions (lowercase, with leading dot).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Discover lists the files in inputDir (non-recursive) whose extension is a
// supported image type, sorted lexicographically for deterministic
// processing order. Subdirectories and other entries are ignored.
func Discover(inputDir string) ([]string, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, inputDir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, inputDir)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if imageExtensions[ext] {
			files = append(files, filepath.Join(inputDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
