package fatigue

import "testing"

func TestRecommendationOrder(t *testing.T) {
	cases := []struct {
		name    string
		score   float64
		reading Reading
		want    string
	}{
		{
			name:  "critical score wins over everything",
			score: 0.9,
			reading: Reading{
				EyeStatus:  EyeClosed,
				SeatbeltOn: false,
			},
			want: "Immediate rest recommended. Pull over safely.",
		},
		{
			name:    "elevated score",
			score:   0.7,
			reading: Reading{EyeStatus: EyeOpen, SeatbeltOn: true},
			want:    "Take a break soon. Consider stopping at next rest area.",
		},
		{
			name:    "score boundary not inclusive",
			score:   0.8,
			reading: Reading{EyeStatus: EyeOpen, SeatbeltOn: true},
			want:    "Take a break soon. Consider stopping at next rest area.",
		},
		{
			name:    "eyes closed at low score",
			score:   0.5,
			reading: Reading{EyeStatus: EyeClosed, SeatbeltOn: false},
			want:    "Eyes closed detected. Ensure driver is alert.",
		},
		{
			name:    "seatbelt reminder",
			score:   0.2,
			reading: Reading{EyeStatus: EyeOpen, SeatbeltOn: false},
			want:    "Please wear your seatbelt for safety.",
		},
		{
			name:    "default",
			score:   0.1,
			reading: Reading{EyeStatus: EyeOpen, SeatbeltOn: true},
			want:    "Drive safely. Stay alert.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Recommendation(tc.score, tc.reading); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
