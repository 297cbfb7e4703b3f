package dataset

import (
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/railfield-data/trainset.report/internal/fsutil"
)

// jpegQuality for written sample patches. Matches what the annotation
// pipeline uses for its own exports.
const jpegQuality = 90

// WriteFiles writes every aggregated patch as a JPEG under outDir, one
// subdirectory per label, named <label>.<archive-stem>_<n>.jpg. Returns the
// written paths in sample order.
func (r *Result) WriteFiles(fsys fsutil.FileSystem, outDir string) ([]string, error) {
	written := make([]string, 0, len(r.Samples))
	counters := map[string]int{}

	for _, s := range r.Samples {
		labelDir := filepath.Join(outDir, s.Label)
		if err := fsys.MkdirAll(labelDir, 0o755); err != nil {
			return written, fmt.Errorf("create label dir %s: %w", labelDir, err)
		}

		n := counters[s.Label]
		counters[s.Label]++
		stem := strings.TrimSuffix(s.Provenance.Archive, filepath.Ext(s.Provenance.Archive))
		path := filepath.Join(labelDir, fmt.Sprintf("%s.%s_%d.jpg", s.Label, stem, n))

		w, err := fsys.Create(path)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		if err := jpeg.Encode(w, s.Patch, &jpeg.Options{Quality: jpegQuality}); err != nil {
			w.Close()
			return written, fmt.Errorf("encode %s: %w", path, err)
		}
		if err := w.Close(); err != nil {
			return written, fmt.Errorf("close %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
