// Package dataset aggregates extracted samples across many .r49 archives
// and owns their persistence: patch files on disk, one directory per label,
// and a sqlite index of sample provenance for debugging joins.
package dataset

import (
	"fmt"

	"github.com/railfield-data/trainset.report/internal/archive"
	"github.com/railfield-data/trainset.report/internal/fsutil"
	"github.com/railfield-data/trainset.report/internal/monitoring"
)

// ArchiveFailure records one archive that could not be extracted. The
// surrounding build keeps going; a bad archive must not sink the whole
// dataset.
type ArchiveFailure struct {
	Path string
	Err  error
}

// Result is the aggregate of one build pass over a data directory.
type Result struct {
	Samples     []archive.Sample
	Failures    []ArchiveFailure
	LabelCounts map[string]int
}

// BuildFromDir scans dir recursively for .r49 archives and extracts samples
// from each with the given config. Archives that fail extraction are
// reported in the result and logged, then skipped; per-archive atomicity
// means a failed archive contributes zero samples.
func BuildFromDir(dir string, cfg archive.Config) (*Result, error) {
	paths, err := fsutil.FindArchives(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s archives found under %s", fsutil.ArchiveExt, dir)
	}

	res := &Result{LabelCounts: map[string]int{}}
	for _, path := range paths {
		samples, err := ExtractArchive(path, cfg)
		if err != nil {
			monitoring.Logf("skipping archive %s: %v", path, err)
			res.Failures = append(res.Failures, ArchiveFailure{Path: path, Err: err})
			continue
		}
		res.Samples = append(res.Samples, samples...)
		for _, s := range samples {
			res.LabelCounts[s.Label]++
		}
	}
	return res, nil
}

// ExtractArchive extracts all samples from a single archive, closing it on
// every path.
func ExtractArchive(path string, cfg archive.Config) ([]archive.Sample, error) {
	f, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.Extract(cfg)
}

// Len returns the number of aggregated samples.
func (r *Result) Len() int { return len(r.Samples) }
