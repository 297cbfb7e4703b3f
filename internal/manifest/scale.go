package manifest

// Scale identifies a model railroad scale. The set of valid scales and their
// ratio denominators mirrors the layout UI that produces the archives, so the
// two sides stay in agreement about calibration geometry.
type Scale string

// Valid model railroad scales.
const (
	ScaleG  Scale = "G"
	ScaleO  Scale = "O"
	ScaleS  Scale = "S"
	ScaleHO Scale = "HO"
	ScaleT  Scale = "T"
	ScaleN  Scale = "N"
	ScaleZ  Scale = "Z"
)

// StandardGaugeMM is the real-world standard track gauge in millimeters.
const StandardGaugeMM = 1435.0

// scaleRatios maps each scale to its ratio denominator (HO is 1:87).
// Every valid scale has exactly one entry; lookups go through Ratio so an
// unknown scale is reported instead of silently defaulting.
var scaleRatios = map[Scale]int{
	ScaleG:  25,
	ScaleO:  48,
	ScaleS:  64,
	ScaleHO: 87,
	ScaleT:  72,
	ScaleN:  160,
	ScaleZ:  96,
}

// Ratio returns the ratio denominator for the scale. The second return value
// is false for unknown scales.
func (s Scale) Ratio() (int, bool) {
	r, ok := scaleRatios[s]
	return r, ok
}

// Valid reports whether s is one of the recognised scales.
func (s Scale) Valid() bool {
	_, ok := scaleRatios[s]
	return ok
}

// GaugeMM returns the physical track gauge in millimeters for the scale
// (~16.5mm for HO). It panics on an unknown scale: Parse validates the scale
// at load time, so reaching here with an invalid one is a programming error,
// and a silent fallback would corrupt every downstream density estimate.
func (s Scale) GaugeMM() float64 {
	r, ok := scaleRatios[s]
	if !ok {
		panic("manifest: unknown scale " + string(s))
	}
	return StandardGaugeMM / float64(r)
}
