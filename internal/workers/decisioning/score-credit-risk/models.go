// internal/workers/decisioning/score-credit-risk/models.go
package scorecreditrisk

type Input struct {
	ApplicantID *int64                 `json:"applicantId,omitempty"`
	Applicant   map[string]interface{} `json:"applicant"`
}

type Output struct {
	// Votes are ordered decision_tree, logistic_regression, random_forest.
	Votes       []int          `json:"votes"`
	ModelScores map[string]int `json:"modelScores"`
}

type scoreRequest struct {
	Features map[string]interface{} `json:"features"`
}

type scoreResponse struct {
	Risk *int `json:"risk"`
}
