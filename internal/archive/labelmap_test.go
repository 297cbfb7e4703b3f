package archive

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildLabelMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		labels        []string
		remapTrainEnd bool
		want          map[string]string
	}{
		{
			name:   "coupler folds into train",
			labels: []string{"train"},
			want: map[string]string{
				"train":         "train",
				"train-coupler": "train",
			},
		},
		{
			name:   "requested coupler stays itself",
			labels: []string{"train", "train-coupler"},
			want: map[string]string{
				"train":         "train",
				"train-coupler": "train-coupler",
			},
		},
		{
			name:   "coupler alone is not remapped",
			labels: []string{"train-coupler"},
			want: map[string]string{
				"train-coupler": "train-coupler",
			},
		},
		{
			name:   "no train class, no rules",
			labels: []string{"signal", "track"},
			want: map[string]string{
				"signal": "signal",
				"track":  "track",
			},
		},
		{
			name:          "train-end rule only behind the flag",
			labels:        []string{"train"},
			remapTrainEnd: true,
			want: map[string]string{
				"train":         "train",
				"train-coupler": "train",
				"train-end":     "train",
			},
		},
		{
			name:          "train-end rule skipped when train-end requested",
			labels:        []string{"train", "train-end"},
			remapTrainEnd: true,
			want: map[string]string{
				"train":         "train",
				"train-end":     "train-end",
				"train-coupler": "train",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := BuildLabelMap(tt.labels, tt.remapTrainEnd)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildLabelMap() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
