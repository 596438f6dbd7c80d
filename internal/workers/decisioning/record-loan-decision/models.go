// internal/workers/decisioning/record-loan-decision/models.go
package recordloandecision

type Input struct {
	CorrelationID string `json:"correlationId"`
	ApplicantID   *int64 `json:"applicantId,omitempty"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
	RuleID        string `json:"ruleId"`
	ConsensusRisk int    `json:"consensusRisk"`
	Votes         []int  `json:"votes,omitempty"`
}

type Output struct {
	DecisionRecordID string `json:"decisionRecordId"`
	RecordedAt       string `json:"recordedAt"`
}
