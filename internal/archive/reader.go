// Package archive reads .r49 capture archives and extracts labeled training
// samples from them. An archive is a zip container holding a manifest.json
// plus the full-resolution camera images it references; extraction decodes
// each image, normalises it to a target density through a geometry transform,
// and crops fixed-size patches around the annotated markers.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/railfield-data/trainset.report/internal/manifest"
	"github.com/railfield-data/trainset.report/internal/monitoring"
)

// ManifestName is the manifest entry at the archive root.
const ManifestName = "manifest.json"

// R49File is an open capture archive with its parsed manifest. The zip
// handle is exclusively owned: callers must Close it when done, and a single
// R49File must not be shared across concurrent extractions.
type R49File struct {
	path     string
	zr       *zip.ReadCloser
	manifest *manifest.Manifest
}

// Open opens the archive at path and parses its manifest. It returns an
// *ArchiveError when the file is not a readable zip, ErrManifestMissing
// (wrapped with the path) when no manifest entry exists, and propagates
// manifest parse errors unchanged. On any error the zip handle is released
// before returning.
func Open(path string) (*R49File, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ArchiveError{Path: path, Err: err}
	}

	f := &R49File{path: path, zr: zr}
	raw, err := f.readEntry(ManifestName)
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrManifestMissing)
	}

	m, err := manifest.Parse(raw)
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range m.Warnings {
		monitoring.Logf("%s: manifest warning: %s", f.Name(), w)
	}

	f.manifest = m
	return f, nil
}

// Manifest returns the parsed manifest. Read-only.
func (f *R49File) Manifest() *manifest.Manifest { return f.manifest }

// Path returns the archive's path as given to Open.
func (f *R49File) Path() string { return f.path }

// Name returns the archive's base filename, used in sample provenance.
func (f *R49File) Name() string { return filepath.Base(f.path) }

// Stem returns the base filename without its extension, used for naming
// written sample files.
func (f *R49File) Stem() string {
	name := f.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Close releases the underlying zip handle.
func (f *R49File) Close() error { return f.zr.Close() }

// readEntry reads one named entry fully. Annotation tooling is inconsistent
// about "./" prefixes in filenames, so lookup tolerates them on both sides.
func (f *R49File) readEntry(name string) ([]byte, error) {
	entry := f.findEntry(name)
	if entry == nil {
		return nil, fmt.Errorf("entry %q not found", name)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %q: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %q: %w", name, err)
	}
	return data, nil
}

func (f *R49File) findEntry(name string) *zip.File {
	want := strings.TrimPrefix(name, "./")
	for _, zf := range f.zr.File {
		if strings.TrimPrefix(zf.Name, "./") == want {
			return zf
		}
	}
	return nil
}
