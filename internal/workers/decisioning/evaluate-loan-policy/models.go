// internal/workers/decisioning/evaluate-loan-policy/models.go
package evaluateloanpolicy

import "loan-workers/internal/models"

// Input carries either a precomputed consensusRisk or the raw classifier votes.
type Input struct {
	ApplicantID   *int64                 `json:"applicantId,omitempty"`
	Applicant     map[string]interface{} `json:"applicant"`
	ConsensusRisk *int                   `json:"consensusRisk,omitempty"`
	Votes         []int                  `json:"votes,omitempty"`
}

type Output struct {
	Status         models.Outcome   `json:"status"`
	Reason         string           `json:"reason"`
	ApplicantID    *int64           `json:"applicantId"`
	RuleID         string           `json:"ruleId"`
	RequiresReview bool             `json:"requiresReview"`
	ConsensusRisk  models.RiskLabel `json:"consensusRisk"`
}
