package decisioning

import (
	"errors"
	"testing"

	"loan-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAggregate_AllCombinations(t *testing.T) {
	tests := []struct {
		votes    []int
		expected models.RiskLabel
	}{
		{[]int{0, 0, 0}, models.RiskGood},
		{[]int{0, 0, 1}, models.RiskGood},
		{[]int{0, 1, 0}, models.RiskGood},
		{[]int{1, 0, 0}, models.RiskGood},
		{[]int{0, 1, 1}, models.RiskBad},
		{[]int{1, 0, 1}, models.RiskBad},
		{[]int{1, 1, 0}, models.RiskBad},
		{[]int{1, 1, 1}, models.RiskBad},
	}

	for _, tt := range tests {
		got, err := Aggregate(tt.votes)
		require.NoError(t, err, "votes %v", tt.votes)
		assert.Equal(t, tt.expected, got, "votes %v", tt.votes)
	}
}

func TestAggregate_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		votes []int
	}{
		{"nil", nil},
		{"empty", []int{}},
		{"two votes", []int{0, 1}},
		{"four votes", []int{0, 1, 1, 0}},
		{"non-binary value", []int{0, 2, 1}},
		{"negative value", []int{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.votes)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestAggregate_MajorityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		votes := rapid.SliceOfN(rapid.IntRange(0, 1), 3, 3).Draw(t, "votes")

		got, err := Aggregate(votes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		agreeing := 0
		for _, v := range votes {
			if models.RiskLabel(v) == got {
				agreeing++
			}
		}
		if agreeing < 2 {
			t.Fatalf("consensus %d agrees with only %d of %v", got, agreeing, votes)
		}
	})
}

func TestAggregate_OrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		votes := rapid.SliceOfN(rapid.IntRange(0, 1), 3, 3).Draw(t, "votes")
		rotated := []int{votes[2], votes[0], votes[1]}

		a, _ := Aggregate(votes)
		b, _ := Aggregate(rotated)
		if a != b {
			t.Fatalf("aggregate(%v)=%d but aggregate(%v)=%d", votes, a, rotated, b)
		}
	})
}
