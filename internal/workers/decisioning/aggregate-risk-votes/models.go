// internal/workers/decisioning/aggregate-risk-votes/models.go
package aggregateriskvotes

import "loan-workers/internal/models"

type Input struct {
	Votes []int `json:"votes"`
}

type Output struct {
	ConsensusRisk models.RiskLabel `json:"consensusRisk"`
	BadVotes      int              `json:"badVotes"`
}
