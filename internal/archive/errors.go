package archive

import (
	"errors"
	"fmt"
)

// ErrManifestMissing reports an archive that opened fine but contains no
// manifest.json entry.
var ErrManifestMissing = errors.New("archive has no manifest.json entry")

// ArchiveError reports an archive file that could not be opened or read as a
// zip container.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// MissingImageError reports a manifest-referenced image entry that is absent
// from the archive. This indicates structural corruption, so it is fatal to
// the whole archive extraction.
type MissingImageError struct {
	Archive  string
	Filename string
}

func (e *MissingImageError) Error() string {
	return fmt.Sprintf("image %s not found in %s", e.Filename, e.Archive)
}

// DecodeError reports image entry bytes that could not be decoded as a
// raster image. Fatal for the same reason as MissingImageError.
type DecodeError struct {
	Archive  string
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s from %s: %v", e.Filename, e.Archive, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransformError reports a marker coordinate that could not be mapped through
// the image transform. It is marker-local: outside strict mode the marker is
// skipped and extraction continues.
type TransformError struct {
	Archive    string
	ImageIndex int
	MarkerID   string
	Err        error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform marker %s (image %d, %s): %v", e.MarkerID, e.ImageIndex, e.Archive, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
