package archive

import (
	"fmt"
	"image"
	"image/draw"
	"sort"

	"github.com/railfield-data/trainset.report/internal/geometry"
	"github.com/railfield-data/trainset.report/internal/manifest"
	"github.com/railfield-data/trainset.report/internal/monitoring"
)

// Config carries the extraction parameters for one archive pass.
type Config struct {
	// Labels is the ordered set of class labels the classifier trains on.
	// Markers whose (remapped) type is not in this set are skipped.
	Labels []string

	// Size is the crop edge length in pixels. The crop window is centered on
	// the mapped marker coordinate with radius Size/2.
	Size int

	// DPT is the target calibration density in dots-per-track that images
	// are normalised to before cropping.
	DPT int

	// Strict promotes per-marker coordinate mapping failures from skips to
	// archive-fatal errors.
	Strict bool

	// RemapTrainEnd enables the train-end -> train remap rule. Off by
	// default; see BuildLabelMap.
	RemapTrainEnd bool

	// Transform is the geometry transform applied once per image. Defaults
	// to geometry.ApplyScaling when nil.
	Transform geometry.Transform
}

// Validate checks the config before an extraction pass.
func (c Config) Validate() error {
	if len(c.Labels) == 0 {
		return fmt.Errorf("config: labels must not be empty")
	}
	if c.Size < 2 {
		return fmt.Errorf("config: crop size must be at least 2, got %d", c.Size)
	}
	if c.DPT < 1 {
		return fmt.Errorf("config: target dpt must be positive, got %d", c.DPT)
	}
	return nil
}

func (c Config) transform() geometry.Transform {
	if c.Transform != nil {
		return c.Transform
	}
	return geometry.ApplyScaling
}

// Provenance identifies where a sample came from, precisely enough to join
// extraction output back to the annotated archive for debugging.
type Provenance struct {
	Archive    string // archive base filename
	ImageIndex int    // index into the manifest's image list
	MarkerID   string // marker id within that image's labels
}

func (p Provenance) String() string {
	return fmt.Sprintf("%s#%d/%s", p.Archive, p.ImageIndex, p.MarkerID)
}

// Sample is one extracted training sample: a fixed-size patch cropped around
// a mapped marker, its class label, and its provenance. Samples are
// independent values with no back-reference to the archive or manifest.
type Sample struct {
	Patch      *image.RGBA
	Label      string
	Provenance Provenance
}

// SkipReason classifies why a marker produced no sample.
type SkipReason string

const (
	// SkipNotRequested: the marker's (remapped) type is not a class of
	// interest.
	SkipNotRequested SkipReason = "label-not-requested"
	// SkipTransform: the coordinate mapping failed for this marker.
	SkipTransform SkipReason = "transform-failed"
	// SkipOutOfBounds: the crop window would read outside the transformed
	// image. Expected near image edges.
	SkipOutOfBounds SkipReason = "out-of-bounds"
	// SkipCrop: cropping failed unexpectedly.
	SkipCrop SkipReason = "crop-failed"
)

// Outcome is the tagged per-marker result of an extraction pass: either a
// Sample or a skip with its reason. Every marker of every image yields
// exactly one Outcome, so callers decide what skip logging they want instead
// of the extractor swallowing failures.
type Outcome struct {
	Provenance Provenance
	Sample     *Sample    // nil when skipped
	Reason     SkipReason // empty when a sample was produced
	Err        error      // underlying error for SkipTransform/SkipCrop
}

// Skipped reports whether the marker produced no sample.
func (o Outcome) Skipped() bool { return o.Sample == nil }

// Extract runs the extraction pipeline and returns the produced samples in
// deterministic order. Skips are reported through monitoring.Verbosef; use
// ExtractOutcomes to inspect them programmatically.
func (f *R49File) Extract(cfg Config) ([]Sample, error) {
	outcomes, err := f.ExtractOutcomes(cfg)
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, o := range outcomes {
		if o.Skipped() {
			if o.Reason != SkipNotRequested {
				monitoring.Verbosef("%s: skipping %s: %s", f.Name(), o.Provenance, o.Reason)
			}
			continue
		}
		samples = append(samples, *o.Sample)
	}
	return samples, nil
}

// ExtractOutcomes walks the manifest's images in order and yields one
// Outcome per marker. Fatal conditions (missing or undecodable image entry,
// unusable calibration, any marker failure in strict mode) abort the whole
// archive and return no outcomes: an archive produces either its complete
// outcome sequence or nothing.
func (f *R49File) ExtractOutcomes(cfg Config) ([]Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	labelMap := BuildLabelMap(cfg.Labels, cfg.RemapTrainEnd)
	requested := make(map[string]bool, len(cfg.Labels))
	for _, l := range cfg.Labels {
		requested[l] = true
	}
	transform := cfg.transform()

	var outcomes []Outcome
	for i, meta := range f.manifest.Images {
		data, err := f.readEntry(meta.Filename)
		if err != nil {
			return nil, &MissingImageError{Archive: f.Name(), Filename: meta.Filename}
		}

		img, err := decodeImage(data)
		if err != nil {
			return nil, &DecodeError{Archive: f.Name(), Filename: meta.Filename, Err: err}
		}

		transformed, coordMap, err := transform(img, f.manifest, cfg.DPT)
		if err != nil {
			return nil, fmt.Errorf("%s: transform image %d (%s): %w", f.Name(), i, meta.Filename, err)
		}

		for _, markerID := range sortedMarkerIDs(meta.Labels) {
			marker := meta.Labels[markerID]
			prov := Provenance{Archive: f.Name(), ImageIndex: i, MarkerID: markerID}

			label := marker.Type
			if mapped, ok := labelMap[marker.Type]; ok {
				label = mapped
			}
			if !requested[label] {
				outcomes = append(outcomes, Outcome{Provenance: prov, Reason: SkipNotRequested})
				continue
			}

			cx, cy, err := coordMap.Apply(float64(marker.X), float64(marker.Y))
			if err != nil {
				terr := &TransformError{Archive: f.Name(), ImageIndex: i, MarkerID: markerID, Err: err}
				if cfg.Strict {
					return nil, terr
				}
				outcomes = append(outcomes, Outcome{Provenance: prov, Reason: SkipTransform, Err: terr})
				continue
			}

			patch, reason, err := cropPatch(transformed, int(cx), int(cy), cfg.Size)
			if patch == nil {
				outcomes = append(outcomes, Outcome{Provenance: prov, Reason: reason, Err: err})
				continue
			}

			outcomes = append(outcomes, Outcome{
				Provenance: prov,
				Sample:     &Sample{Patch: patch, Label: label, Provenance: prov},
			})
		}
	}

	return outcomes, nil
}

// cropPatch cuts the crop window centered at (cx, cy) out of img into an
// independent RGBA raster. A window that does not lie entirely within the
// image bounds yields no patch.
func cropPatch(img image.Image, cx, cy, size int) (*image.RGBA, SkipReason, error) {
	r := size / 2
	bounds := img.Bounds()
	window := image.Rect(cx-r, cy-r, cx+r, cy+r)
	if !window.In(bounds) {
		return nil, SkipOutOfBounds, nil
	}

	patch := image.NewRGBA(image.Rect(0, 0, window.Dx(), window.Dy()))
	draw.Draw(patch, patch.Bounds(), img, window.Min, draw.Src)
	return patch, "", nil
}

// sortedMarkerIDs fixes the per-image marker iteration order so extraction
// output is deterministic run to run.
func sortedMarkerIDs(labels map[string]manifest.Marker) []string {
	ids := make([]string, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
