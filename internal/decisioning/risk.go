// internal/decisioning/risk.go
package decisioning

import (
	"fmt"

	"loan-workers/internal/models"
)

// VoteCount is the number of classifiers that take part in a consensus.
const VoteCount = 3

// Aggregate returns the majority label of exactly three binary votes.
func Aggregate(votes []int) (models.RiskLabel, error) {
	if len(votes) != VoteCount {
		return 0, fmt.Errorf("%w: expected %d risk votes, got %d", ErrInvalidInput, VoteCount, len(votes))
	}

	bad := 0
	for i, v := range votes {
		label := models.RiskLabel(v)
		if !label.Valid() {
			return 0, fmt.Errorf("%w: vote %d has non-binary value %d", ErrInvalidInput, i, v)
		}
		if label == models.RiskBad {
			bad++
		}
	}

	if bad*2 > VoteCount {
		return models.RiskBad, nil
	}
	return models.RiskGood, nil
}
