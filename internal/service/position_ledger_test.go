package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPosition(t *testing.T) {
	assert.Equal(t, 1, NextPosition(nil))
	assert.Equal(t, 4, NextPosition([]int{1, 2, 3}))
	// 有空洞时依然是 max+1
	assert.Equal(t, 6, NextPosition([]int{2, 5}))
}

func TestRenumberClosesGap(t *testing.T) {
	siblings := []Sibling{
		{ID: "c1", Position: 1},
		{ID: "c3", Position: 3},
		{ID: "c4", Position: 4},
	}

	updates := Renumber(siblings)

	assert.Equal(t, []PositionUpdate{
		{ID: "c3", Position: 2},
		{ID: "c4", Position: 3},
	}, updates)
}

func TestRenumberAlreadyContiguous(t *testing.T) {
	siblings := []Sibling{{ID: "a", Position: 2}, {ID: "b", Position: 1}}
	assert.Empty(t, Renumber(siblings))
}

func TestRenumberTiesKeepInputOrder(t *testing.T) {
	siblings := []Sibling{
		{ID: "a", Position: 2},
		{ID: "b", Position: 2},
		{ID: "c", Position: 5},
	}

	updates := Renumber(siblings)

	assert.Equal(t, []PositionUpdate{
		{ID: "a", Position: 1},
		{ID: "c", Position: 3},
	}, updates)
}

func TestRenumberDoesNotMutateInput(t *testing.T) {
	siblings := []Sibling{{ID: "b", Position: 3}, {ID: "a", Position: 1}}
	Renumber(siblings)
	assert.Equal(t, "b", siblings[0].ID)
}

func TestValidatePermutation(t *testing.T) {
	current := []Sibling{
		{ID: "a", Position: 1},
		{ID: "b", Position: 2},
		{ID: "c", Position: 3},
	}

	tests := []struct {
		name     string
		proposed []PositionUpdate
		want     error
	}{
		{
			name:     "valid swap",
			proposed: []PositionUpdate{{"a", 3}, {"b", 2}, {"c", 1}},
		},
		{
			name: "empty",
			want: ErrEmptyReorder,
		},
		{
			name:     "missing sibling",
			proposed: []PositionUpdate{{"a", 2}, {"b", 1}},
			want:     ErrIncompleteReorder,
		},
		{
			name:     "partial with in-range positions",
			proposed: []PositionUpdate{{"a", 1}, {"b", 2}},
			want:     ErrIncompleteReorder,
		},
		{
			name:     "unknown id",
			proposed: []PositionUpdate{{"a", 1}, {"b", 2}, {"x", 3}},
			want:     ErrUnknownSibling,
		},
		{
			name:     "duplicate id",
			proposed: []PositionUpdate{{"a", 1}, {"a", 2}, {"c", 3}},
			want:     ErrDuplicateSibling,
		},
		{
			name:     "duplicate position",
			proposed: []PositionUpdate{{"a", 1}, {"b", 1}, {"c", 3}},
			want:     ErrInvalidPosition,
		},
		{
			name:     "out of range",
			proposed: []PositionUpdate{{"a", 1}, {"b", 2}, {"c", 4}},
			want:     ErrInvalidPosition,
		},
		{
			name:     "zero position",
			proposed: []PositionUpdate{{"a", 0}, {"b", 2}, {"c", 3}},
			want:     ErrInvalidPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePermutation(current, tt.proposed)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChangedPositions(t *testing.T) {
	current := []Sibling{{ID: "a", Position: 1}, {ID: "b", Position: 2}, {ID: "c", Position: 3}}
	proposed := []PositionUpdate{{"a", 1}, {"b", 3}, {"c", 2}}

	assert.Equal(t, []PositionUpdate{{"b", 3}, {"c", 2}}, ChangedPositions(current, proposed))
}

func TestIsContiguous(t *testing.T) {
	assert.True(t, IsContiguous(nil))
	assert.True(t, IsContiguous([]Sibling{{ID: "a", Position: 2}, {ID: "b", Position: 1}}))
	assert.False(t, IsContiguous([]Sibling{{ID: "a", Position: 1}, {ID: "b", Position: 3}}))
	assert.False(t, IsContiguous([]Sibling{{ID: "a", Position: 1}, {ID: "b", Position: 1}}))
}
