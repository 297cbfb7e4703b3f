// Package manifest models the metadata bundled inside .r49 capture archives:
// layout scale and calibration geometry, camera resolution, and per-image
// marker annotations. A Manifest is parsed once per archive and is read-only
// afterwards; all derived geometry (gauge, dots-per-track) is computed from
// the parsed value without mutating it.
//
// The schema is version 2 of the layout UI's manifest format. Keep the field
// set in sync with the annotation tooling that writes the archives.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SupportedVersion is the only manifest schema version this package accepts.
const SupportedVersion = 2

// Reserved calibration marker ids. The four corners of the calibration
// rectangle are annotated under fixed ids in Manifest.Calibration.
const (
	CornerTopLeft     = "rect-0"
	CornerBottomLeft  = "rect-1"
	CornerTopRight    = "rect-2"
	CornerBottomRight = "rect-3"
)

// SchemaError reports a manifest that is present but structurally invalid:
// a required field is missing or has the wrong type.
type SchemaError struct {
	Field string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest schema: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("manifest schema: field %q is missing or invalid", e.Field)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// UnsupportedVersionError reports a manifest whose version field is not
// SupportedVersion. Archives written by newer or older tooling are rejected
// outright rather than half-parsed.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("manifest version %d not supported (want %d)", e.Version, SupportedVersion)
}

// Marker is a single annotated point in the original, untransformed image's
// pixel space. Type doubles as the raw label before any remapping; the
// annotation tooling defaults it to "track".
type Marker struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

// PhysicalSize is the real-world footprint of the calibration rectangle in
// millimeters. Either dimension may be absent when the operator only measured
// one edge of the rectangle.
type PhysicalSize struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// Layout describes the model railroad layout a capture session was taken on.
type Layout struct {
	Scale       Scale        `json:"scale"`
	Size        PhysicalSize `json:"size"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Contact     string       `json:"contact,omitempty"`
}

// Resolution is a camera resolution in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Camera describes the capturing camera.
type Camera struct {
	Resolution Resolution `json:"resolution"`
	Model      string     `json:"model,omitempty"`
}

// ImageMeta names one embedded image and its marker annotations, keyed by
// marker id. Map semantics make ids unique per image; duplicate ids in the
// raw JSON keep the last occurrence and are surfaced as parse warnings.
type ImageMeta struct {
	Filename string            `json:"filename"`
	Labels   map[string]Marker `json:"labels"`
}

// Manifest is the complete version-2 manifest for one archive.
type Manifest struct {
	Version     int               `json:"version"`
	Layout      Layout            `json:"layout"`
	Camera      Camera            `json:"camera"`
	Calibration map[string]Marker `json:"calibration"`
	Images      []ImageMeta       `json:"images"`

	// Warnings collects non-fatal data-quality findings from parsing, such
	// as duplicate marker ids within one image. Not part of the wire format.
	Warnings []string `json:"-"`
}

// wire mirror types with pointer fields so that required-but-missing can be
// told apart from present-but-zero.
type wireManifest struct {
	Version     *int              `json:"version"`
	Layout      *wireLayout       `json:"layout"`
	Camera      *wireCamera       `json:"camera"`
	Calibration map[string]Marker `json:"calibration"`
	Images      []wireImage       `json:"images"`
}

type wireLayout struct {
	Scale       *string      `json:"scale"`
	Size        PhysicalSize `json:"size"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Contact     string       `json:"contact"`
}

type wireCamera struct {
	Resolution *Resolution `json:"resolution"`
	Model      string      `json:"model"`
}

type wireImage struct {
	Filename *string         `json:"filename"`
	Labels   json.RawMessage `json:"labels"`
}

// Parse decodes and validates raw manifest JSON. It returns a *SchemaError
// when required fields are missing or mistyped and an
// *UnsupportedVersionError when the version field is not SupportedVersion.
// On any error no partial Manifest is returned.
func Parse(raw []byte) (*Manifest, error) {
	var w wireManifest
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &SchemaError{Field: "(document)", Err: err}
	}

	if w.Version == nil {
		return nil, &SchemaError{Field: "version"}
	}
	if *w.Version != SupportedVersion {
		return nil, &UnsupportedVersionError{Version: *w.Version}
	}
	if w.Layout == nil {
		return nil, &SchemaError{Field: "layout"}
	}
	if w.Layout.Scale == nil {
		return nil, &SchemaError{Field: "layout.scale"}
	}
	scale := Scale(*w.Layout.Scale)
	if !scale.Valid() {
		return nil, &SchemaError{Field: "layout.scale", Err: fmt.Errorf("unknown scale %q", scale)}
	}
	if w.Camera == nil {
		return nil, &SchemaError{Field: "camera"}
	}
	if w.Camera.Resolution == nil {
		return nil, &SchemaError{Field: "camera.resolution"}
	}

	m := &Manifest{
		Version: *w.Version,
		Layout: Layout{
			Scale:       scale,
			Size:        w.Layout.Size,
			Name:        w.Layout.Name,
			Description: w.Layout.Description,
			Contact:     w.Layout.Contact,
		},
		Camera: Camera{
			Resolution: *w.Camera.Resolution,
			Model:      w.Camera.Model,
		},
		Calibration: w.Calibration,
		Images:      make([]ImageMeta, 0, len(w.Images)),
	}
	if m.Calibration == nil {
		m.Calibration = map[string]Marker{}
	}

	for i, wi := range w.Images {
		if wi.Filename == nil || *wi.Filename == "" {
			return nil, &SchemaError{Field: fmt.Sprintf("images[%d].filename", i)}
		}
		labels := map[string]Marker{}
		if len(wi.Labels) > 0 {
			if err := json.Unmarshal(wi.Labels, &labels); err != nil {
				return nil, &SchemaError{Field: fmt.Sprintf("images[%d].labels", i), Err: err}
			}
			dups, err := duplicateKeys(wi.Labels)
			if err != nil {
				return nil, &SchemaError{Field: fmt.Sprintf("images[%d].labels", i), Err: err}
			}
			for _, id := range dups {
				m.Warnings = append(m.Warnings,
					fmt.Sprintf("images[%d] (%s): duplicate marker id %q, keeping last occurrence", i, *wi.Filename, id))
			}
		}
		m.Images = append(m.Images, ImageMeta{Filename: *wi.Filename, Labels: labels})
	}

	return m, nil
}

// NumberOfImages returns the count of images in the manifest.
func (m *Manifest) NumberOfImages() int { return len(m.Images) }

// Image returns the image metadata at the given index.
func (m *Manifest) Image(index int) (ImageMeta, error) {
	if index < 0 || index >= len(m.Images) {
		return ImageMeta{}, fmt.Errorf("image index %d out of range [0,%d)", index, len(m.Images))
	}
	return m.Images[index], nil
}

// GaugeMM returns the physical track gauge in millimeters for the layout's
// scale.
func (m *Manifest) GaugeMM() float64 {
	return m.Layout.Scale.GaugeMM()
}

// CalibrationCorner looks up one of the reserved rect-0..rect-3 markers.
func (m *Manifest) CalibrationCorner(id string) (Marker, bool) {
	mk, ok := m.Calibration[id]
	return mk, ok
}

// Default returns an empty version-2 manifest with HO scale, matching the
// annotation tooling's starting state.
func Default() *Manifest {
	return &Manifest{
		Version:     SupportedVersion,
		Layout:      Layout{Scale: ScaleHO},
		Calibration: map[string]Marker{},
	}
}

// duplicateKeys scans a raw JSON object for duplicated top-level keys.
// encoding/json keeps the last duplicate silently, so this is the only place
// the collision is still observable.
func duplicateKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	seen := map[string]bool{}
	var dups []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		if seen[key] {
			dups = append(dups, key)
		}
		seen[key] = true

		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return dups, nil
}

// skipValue consumes exactly one JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
