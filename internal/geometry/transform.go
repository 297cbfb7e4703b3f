// Package geometry implements the calibration-driven image transforms used
// during sample extraction: a uniform scaling variant and a full planar
// homography (perspective) variant. Both normalise an image to a caller
// supplied target density in dots-per-track and expose the matching
// coordinate map so marker annotations can follow the pixels.
package geometry

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/railfield-data/trainset.report/internal/manifest"
)

// Point is a position in continuous pixel coordinates.
type Point struct {
	X, Y float64
}

// CoordinateMap maps a point from the original image's pixel space into the
// transformed image's pixel space. Implementations are pure; Apply never
// mutates the map.
type CoordinateMap interface {
	Apply(x, y float64) (float64, float64, error)
}

// Transform turns a decoded image and its manifest into a density-normalised
// image plus the coordinate map that tracks the pixel movement. Both
// ApplyScaling and ApplyPerspective satisfy this signature so the extractor
// stays variant-agnostic.
type Transform func(img image.Image, m *manifest.Manifest, targetDPT int) (image.Image, CoordinateMap, error)

// CalibrationError reports a manifest whose calibration geometry cannot
// support the requested transform. Extraction for the archive cannot proceed
// reliably without it.
type CalibrationError struct {
	Reason string
}

func (e *CalibrationError) Error() string {
	return "calibration: " + e.Reason
}

// ScaleMap is the coordinate map of a uniform rescale.
type ScaleMap struct {
	Factor float64
}

// Apply multiplies both coordinates by the scale factor.
func (s ScaleMap) Apply(x, y float64) (float64, float64, error) {
	return x * s.Factor, y * s.Factor, nil
}

// HomographyMap is the coordinate map of a planar perspective transform,
// represented by its 3x3 matrix in homogeneous coordinates.
type HomographyMap struct {
	h *mat.Dense // 3x3
}

// projectiveEpsilon guards against points that project to infinity: when the
// homogeneous w term collapses below this, Apply reports an error instead of
// returning a meaningless coordinate.
const projectiveEpsilon = 1e-10

// Apply maps a point through the homography.
func (hm *HomographyMap) Apply(x, y float64) (float64, float64, error) {
	u := hm.h.At(0, 0)*x + hm.h.At(0, 1)*y + hm.h.At(0, 2)
	v := hm.h.At(1, 0)*x + hm.h.At(1, 1)*y + hm.h.At(1, 2)
	w := hm.h.At(2, 0)*x + hm.h.At(2, 1)*y + hm.h.At(2, 2)
	if math.Abs(w) < projectiveEpsilon {
		return 0, 0, fmt.Errorf("point (%v,%v) projects to infinity", x, y)
	}
	return u / w, v / w, nil
}

// Matrix returns a copy of the 3x3 homography matrix.
func (hm *HomographyMap) Matrix() *mat.Dense {
	return mat.DenseCopyOf(hm.h)
}

// inverse returns the inverse homography, used for warp resampling.
func (hm *HomographyMap) inverse() (*HomographyMap, error) {
	var inv mat.Dense
	if err := inv.Inverse(hm.h); err != nil {
		return nil, fmt.Errorf("homography not invertible: %w", err)
	}
	return &HomographyMap{h: &inv}, nil
}

// Homography computes the planar homography mapping the four source points
// onto the four destination points, in matching order. Degenerate geometry
// (three collinear corners, coincident points) yields an error.
//
// The matrix is found by solving the standard 8x8 linear system with h33
// pinned to 1.
func Homography(src, dst [4]Point) (*HomographyMap, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		b.SetVec(2*i, u)
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("degenerate corner geometry: %w", err)
	}

	m := mat.NewDense(3, 3, []float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	})
	return &HomographyMap{h: m}, nil
}
