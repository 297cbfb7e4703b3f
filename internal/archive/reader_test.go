package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/railfield-data/trainset.report/internal/manifest"
	"github.com/railfield-data/trainset.report/internal/testutil"
)

func TestOpenNotAZip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.r49")
	if err := os.WriteFile(path, []byte("this is not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	var aerr *ArchiveError
	if !errors.As(err, &aerr) {
		t.Fatalf("Open() error = %v, want ArchiveError", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "nope.r49"))
	var aerr *ArchiveError
	if !errors.As(err, &aerr) {
		t.Fatalf("Open() error = %v, want ArchiveError", err)
	}
}

func TestOpenNoManifest(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, t.TempDir(), "empty.r49", nil, map[string][]byte{
		"img.png": testutil.EncodePNG(t, testutil.SolidImage(4, 4, redPixel)),
	})

	_, err := Open(path)
	if !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("Open() error = %v, want ErrManifestMissing", err)
	}
}

func TestOpenUnsupportedManifestVersion(t *testing.T) {
	t.Parallel()

	doc := manifestDoc()
	doc["version"] = 3
	path := testutil.WriteArchive(t, t.TempDir(), "v3.r49", testutil.ManifestJSON(t, doc), nil)

	_, err := Open(path)
	var verr *manifest.UnsupportedVersionError
	if !errors.As(err, &verr) {
		t.Fatalf("Open() error = %v, want UnsupportedVersionError", err)
	}
	if verr.Version != 3 {
		t.Errorf("UnsupportedVersionError.Version = %d, want 3", verr.Version)
	}
}

func TestOpenParsesManifest(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, t.TempDir(), "session.r49", testutil.ManifestJSON(t, manifestDoc()), nil)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer f.Close()

	if f.Name() != "session.r49" {
		t.Errorf("Name() = %q", f.Name())
	}
	if f.Stem() != "session" {
		t.Errorf("Stem() = %q", f.Stem())
	}
	if got := f.Manifest().Layout.Scale; got != manifest.ScaleHO {
		t.Errorf("manifest scale = %s, want HO", got)
	}
}

func TestReadEntryToleratesDotSlashPrefix(t *testing.T) {
	t.Parallel()

	img := testutil.EncodePNG(t, testutil.SolidImage(8, 8, redPixel))

	t.Run("manifest references ./, entry plain", func(t *testing.T) {
		t.Parallel()
		doc := manifestDoc()
		doc["images"] = []map[string]any{{"filename": "./img.png", "labels": map[string]any{}}}
		path := testutil.WriteArchive(t, t.TempDir(), "a.r49", testutil.ManifestJSON(t, doc),
			map[string][]byte{"img.png": img})

		f, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		if _, err := f.readEntry("./img.png"); err != nil {
			t.Errorf("readEntry(./img.png) error: %v", err)
		}
	})

	t.Run("entry stored with ./, referenced plain", func(t *testing.T) {
		t.Parallel()
		path := testutil.WriteArchive(t, t.TempDir(), "b.r49", testutil.ManifestJSON(t, manifestDoc()),
			map[string][]byte{"./img.png": img})

		f, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		if _, err := f.readEntry("img.png"); err != nil {
			t.Errorf("readEntry(img.png) error: %v", err)
		}
	})
}
