package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateLevelNumbers(t *testing.T) {
	existing := []Level{{LevelNumber: 1}, {LevelNumber: 2}}
	nl := func(n int) NewLevel { return NewLevel{LevelNumber: n} }

	tests := []struct {
		name       string
		existing   []Level
		candidates []NewLevel
		want       []int
		wantMsg    string
	}{
		{name: "clash with existing", existing: existing, candidates: []NewLevel{nl(2)}, want: []int{2}, wantMsg: "duplicate level numbers: 2"},
		{name: "no clash", existing: existing, candidates: []NewLevel{nl(3), nl(4)}, want: []int{}},
		{name: "first levels", candidates: []NewLevel{nl(1)}, want: []int{}},
		{name: "repeated in batch", existing: existing, candidates: []NewLevel{nl(5), nl(3), nl(5)}, want: []int{5}, wantMsg: "duplicate level numbers: 5"},
		{
			name:       "several sorted",
			existing:   existing,
			candidates: []NewLevel{nl(3), nl(2), nl(3), nl(1)},
			want:       []int{1, 2, 3},
			wantMsg:    "duplicate level numbers: 1, 2, 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DuplicateLevelNumbers(tt.existing, tt.candidates)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMsg, DuplicateLevelNumbersMessage(got))
		})
	}
}

func TestLevel_Threshold(t *testing.T) {
	lvl := Level{}
	assert.Equal(t, 80.0, lvl.Threshold(80))

	lvl.ApprovalThreshold.Float64, lvl.ApprovalThreshold.Valid = 60, true
	assert.Equal(t, 60.0, lvl.Threshold(80))
}
