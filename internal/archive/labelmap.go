package archive

// Marker types with remapping rules. Couplers sit on trains, so when the
// classifier wants "train" but not the finer "train-coupler" class, coupler
// markers are folded into "train".
const (
	LabelTrain        = "train"
	LabelTrainCoupler = "train-coupler"
	LabelTrainEnd     = "train-end"
)

// BuildLabelMap builds the marker-type remap table for a requested label set.
// The table is the identity over the requested labels, augmented with the
// remap rules:
//
//   - train-coupler -> train, when "train" is requested and "train-coupler"
//     itself is not.
//   - train-end -> train, same condition, but only when remapTrainEnd is set.
//     The rule is off by default: train-end crops show too much visible track
//     to make clean "train" samples.
//
// Marker types absent from the table fall through unchanged and are then
// filtered out by the requested-label check.
func BuildLabelMap(labels []string, remapTrainEnd bool) map[string]string {
	m := make(map[string]string, len(labels)+2)
	requested := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = l
		requested[l] = true
	}

	if requested[LabelTrain] && !requested[LabelTrainCoupler] {
		m[LabelTrainCoupler] = LabelTrain
	}
	if remapTrainEnd && requested[LabelTrain] && !requested[LabelTrainEnd] {
		m[LabelTrainEnd] = LabelTrain
	}

	return m
}
