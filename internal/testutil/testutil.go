// Package testutil provides shared test utilities and fixtures.
//
// The main fixture is WriteArchive, which builds a real .r49 zip archive
// (manifest plus encoded images) in a test temp dir so extraction tests run
// against the genuine container format.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// ManifestJSON marshals a free-form manifest document for fixture archives.
// Using a map keeps tests able to produce invalid manifests on purpose.
func ManifestJSON(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal manifest fixture: %v", err)
	}
	return raw
}

// WriteArchive writes a .r49 zip archive into dir containing the given
// manifest bytes (omitted entirely when nil) and entries, and returns its
// path. Entry values are raw bytes, typically from EncodePNG.
func WriteArchive(t *testing.T, dir, name string, manifest []byte, entries map[string][]byte) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if manifest != nil {
		w, err := zw.Create("manifest.json")
		if err != nil {
			t.Fatalf("create manifest entry: %v", err)
		}
		if _, err := w.Write(manifest); err != nil {
			t.Fatalf("write manifest entry: %v", err)
		}
	}

	for entryName, data := range entries {
		w, err := zw.Create(entryName)
		if err != nil {
			t.Fatalf("create entry %s: %v", entryName, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry %s: %v", entryName, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive %s: %v", path, err)
	}
	return path
}

// SolidImage returns a w x h image filled with the given color.
func SolidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// EncodePNG encodes an image as PNG bytes for use as an archive entry.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}
