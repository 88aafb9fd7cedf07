package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/book-expert/raster-pipeline/internal/pnm"
)

const (
	// defaultDirMode is the default permissions for created directories.
	defaultDirMode = 0o750
	outputFileMode = 0o644
)

var imageExtensions = []string{".pbm", ".pgm", ".ppm", ".pnm"}

// DiscoverImages finds all PNM files in a given directory, sorted by name.
// It performs a case-insensitive extension match and does not recurse into
// subdirectories.
func DiscoverImages(dirPath string) ([]string, error) {
	dirEntries, readErr := os.ReadDir(dirPath)
	if readErr != nil {
		return nil, fmt.Errorf(
			"could not read directory %s: %w",
			dirPath,
			readErr,
		)
	}

	var paths []string

	for _, entry := range dirEntries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && slices.Contains(imageExtensions, ext) {
			paths = append(paths, filepath.Join(dirPath, entry.Name()))
		}
	}

	return paths, nil
}

// outputPathFor maps 'scan.pnm' to '<outputDir>/scan.pgm' when the result is
// a graymap.
func outputPathFor(outputDir, inputPath string, variant pnm.Variant) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	return filepath.Join(outputDir, base+variant.Family().Extension())
}
