package manifest

import "math"

// Uncalibrated is the sentinel returned by DotsPerTrack when the manifest
// carries no usable calibration geometry. Callers must not treat it as a
// density.
const Uncalibrated = -1.0

// DotsPerTrack estimates the image's pixel density in pixels per track gauge.
//
// Each edge of the calibration rectangle whose two corner markers exist and
// whose physical dimension is recorded yields one independent estimate:
// pixel length of the edge, divided by the physical dimension in mm, times
// the gauge in mm. The result is the mean of the available estimates rounded
// to the nearest whole number. Averaging over up to four edges tolerates mild
// lens distortion and a slightly skewed calibration rectangle.
//
// Returns Uncalibrated when no estimate is computable.
func (m *Manifest) DotsPerTrack() float64 {
	size := m.Layout.Size
	if !dimensionSet(size.Width) && !dimensionSet(size.Height) {
		return Uncalibrated
	}

	tl, hasTL := m.Calibration[CornerTopLeft]
	bl, hasBL := m.Calibration[CornerBottomLeft]
	tr, hasTR := m.Calibration[CornerTopRight]
	br, hasBR := m.Calibration[CornerBottomRight]

	trackMM := m.GaugeMM()
	var dpts []float64

	// Horizontal edges against the physical width.
	if dimensionSet(size.Width) {
		if hasTL && hasTR {
			dpts = append(dpts, pixelDistance(tl, tr)/(*size.Width)*trackMM)
		}
		if hasBL && hasBR {
			dpts = append(dpts, pixelDistance(bl, br)/(*size.Width)*trackMM)
		}
	}

	// Vertical edges against the physical height.
	if dimensionSet(size.Height) {
		if hasTL && hasBL {
			dpts = append(dpts, pixelDistance(tl, bl)/(*size.Height)*trackMM)
		}
		if hasTR && hasBR {
			dpts = append(dpts, pixelDistance(tr, br)/(*size.Height)*trackMM)
		}
	}

	if len(dpts) == 0 {
		return Uncalibrated
	}

	sum := 0.0
	for _, d := range dpts {
		sum += d
	}
	return math.Round(sum / float64(len(dpts)))
}

// dimensionSet reports whether an optional physical dimension is present and
// usable. Zero is treated as absent; a zero-millimeter rectangle edge cannot
// anchor a density estimate.
func dimensionSet(d *float64) bool {
	return d != nil && *d != 0
}

// pixelDistance is the Euclidean distance between two markers in pixel space.
func pixelDistance(a, b Marker) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
