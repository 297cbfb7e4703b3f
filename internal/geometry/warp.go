package geometry

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/railfield-data/trainset.report/internal/manifest"
)

// maxWarpDim caps the output canvas of either transform. A bad calibration
// rectangle can otherwise request a multi-gigapixel warp.
const maxWarpDim = 16384

// ApplyScaling uniformly resizes the image so that its density matches
// targetDPT, i.e. by the factor targetDPT / manifest.DotsPerTrack(). The
// returned CoordinateMap is the equivalent ScaleMap.
//
// Returns a *CalibrationError when the manifest is uncalibrated.
func ApplyScaling(img image.Image, m *manifest.Manifest, targetDPT int) (image.Image, CoordinateMap, error) {
	dpt := m.DotsPerTrack()
	if dpt <= 0 {
		return nil, nil, &CalibrationError{Reason: "manifest has no usable density estimate"}
	}

	factor := float64(targetDPT) / dpt
	bounds := img.Bounds()
	outW := int(math.Round(float64(bounds.Dx()) * factor))
	outH := int(math.Round(float64(bounds.Dy()) * factor))
	if outW < 1 || outH < 1 || outW > maxWarpDim || outH > maxWarpDim {
		return nil, nil, &CalibrationError{
			Reason: fmt.Sprintf("scaling by %.4f yields unusable size %dx%d", factor, outW, outH),
		}
	}

	src := toRGBA(img)
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			dst.SetRGBA(x, y, sampleBilinear(src, float64(x)/factor, float64(y)/factor))
		}
	}
	return dst, ScaleMap{Factor: factor}, nil
}

// ApplyPerspective computes the homography that maps the four calibration
// rectangle corners onto an idealised rectangle whose pixel size realises
// targetDPT, then warps the whole image through it. The returned
// CoordinateMap is the homography itself.
//
// Requires all four corner markers and both physical dimensions; otherwise a
// *CalibrationError is returned.
func ApplyPerspective(img image.Image, m *manifest.Manifest, targetDPT int) (image.Image, CoordinateMap, error) {
	size := m.Layout.Size
	if size.Width == nil || *size.Width == 0 || size.Height == nil || *size.Height == 0 {
		return nil, nil, &CalibrationError{Reason: "perspective transform needs both physical dimensions"}
	}

	var src [4]Point
	for i, id := range []string{
		manifest.CornerTopLeft,
		manifest.CornerBottomLeft,
		manifest.CornerTopRight,
		manifest.CornerBottomRight,
	} {
		mk, ok := m.CalibrationCorner(id)
		if !ok {
			return nil, nil, &CalibrationError{Reason: fmt.Sprintf("calibration corner %s missing", id)}
		}
		src[i] = Point{X: float64(mk.X), Y: float64(mk.Y)}
	}

	// Destination rectangle sized so the calibration rectangle lands at
	// exactly targetDPT pixels per gauge.
	gauge := m.GaugeMM()
	dstW := *size.Width / gauge * float64(targetDPT)
	dstH := *size.Height / gauge * float64(targetDPT)
	dst := [4]Point{
		{X: 0, Y: 0},
		{X: 0, Y: dstH},
		{X: dstW, Y: 0},
		{X: dstW, Y: dstH},
	}

	hm, err := Homography(src, dst)
	if err != nil {
		return nil, nil, &CalibrationError{Reason: err.Error()}
	}

	// The canvas covers everything the source image maps into with positive
	// coordinates; content mapping to negative coordinates is clipped, the
	// same way the downstream bounds check treats it.
	bounds := img.Bounds()
	outW, outH, err := warpedExtent(hm, bounds)
	if err != nil {
		return nil, nil, &CalibrationError{Reason: err.Error()}
	}

	inv, err := hm.inverse()
	if err != nil {
		return nil, nil, &CalibrationError{Reason: err.Error()}
	}

	srcImg := toRGBA(img)
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			sx, sy, err := inv.Apply(float64(x), float64(y))
			if err != nil {
				continue // leaves the pixel black
			}
			out.SetRGBA(x, y, sampleBilinear(srcImg, sx, sy))
		}
	}
	return out, hm, nil
}

// warpedExtent maps the image corners through the homography and derives the
// output canvas size.
func warpedExtent(hm *HomographyMap, bounds image.Rectangle) (int, int, error) {
	corners := []Point{
		{X: float64(bounds.Min.X), Y: float64(bounds.Min.Y)},
		{X: float64(bounds.Max.X), Y: float64(bounds.Min.Y)},
		{X: float64(bounds.Min.X), Y: float64(bounds.Max.Y)},
		{X: float64(bounds.Max.X), Y: float64(bounds.Max.Y)},
	}
	maxX, maxY := 0.0, 0.0
	for _, c := range corners {
		u, v, err := hm.Apply(c.X, c.Y)
		if err != nil {
			return 0, 0, fmt.Errorf("image corner (%v,%v) projects to infinity", c.X, c.Y)
		}
		maxX = math.Max(maxX, u)
		maxY = math.Max(maxY, v)
	}
	outW := int(math.Ceil(maxX))
	outH := int(math.Ceil(maxY))
	if outW < 1 || outH < 1 {
		return 0, 0, fmt.Errorf("warped image collapses to %dx%d", outW, outH)
	}
	if outW > maxWarpDim || outH > maxWarpDim {
		return 0, 0, fmt.Errorf("warped image %dx%d exceeds limit %d", outW, outH, maxWarpDim)
	}
	return outW, outH, nil
}

// toRGBA returns the image as *image.RGBA, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// sampleBilinear samples the source at a continuous coordinate with bilinear
// interpolation. Coordinates outside the source read as black.
func sampleBilinear(src *image.RGBA, x, y float64) color.RGBA {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := pixelAt(src, x0, y0)
	c10 := pixelAt(src, x0+1, y0)
	c01 := pixelAt(src, x0, y0+1)
	c11 := pixelAt(src, x0+1, y0+1)

	lerp2 := func(a, b, c, d uint8) uint8 {
		top := float64(a)*(1-fx) + float64(b)*fx
		bot := float64(c)*(1-fx) + float64(d)*fx
		return uint8(math.Round(top*(1-fy) + bot*fy))
	}

	return color.RGBA{
		R: lerp2(c00.R, c10.R, c01.R, c11.R),
		G: lerp2(c00.G, c10.G, c01.G, c11.G),
		B: lerp2(c00.B, c10.B, c01.B, c11.B),
		A: lerp2(c00.A, c10.A, c01.A, c11.A),
	}
}

func pixelAt(src *image.RGBA, x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}).In(src.Bounds()) {
		return color.RGBA{}
	}
	return src.RGBAAt(x, y)
}
