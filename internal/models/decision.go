// internal/models/decision.go
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RiskLabel is a binary classifier output: 0 = good, 1 = bad.
type RiskLabel int

const (
	RiskGood RiskLabel = 0
	RiskBad  RiskLabel = 1
)

func (r RiskLabel) Valid() bool {
	return r == RiskGood || r == RiskBad
}

type Outcome int

const (
	Unknown Outcome = iota
	Approved
	Rejected
	FlaggedForReview
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "Approved"
	case Rejected:
		return "Rejected"
	case FlaggedForReview:
		return "Flagged for Review"
	default:
		return "Unknown"
	}
}

// AuditLabel is the upper-case verb used on audit lines.
func (o Outcome) AuditLabel() string {
	switch o {
	case Approved:
		return "APPROVED"
	case Rejected:
		return "REJECTED"
	case FlaggedForReview:
		return "FLAGGED"
	default:
		return "UNKNOWN"
	}
}

func OutcomeFrom(s string) Outcome {
	switch s {
	case "Approved", "APPROVED", "approved":
		return Approved
	case "Rejected", "REJECTED", "rejected":
		return Rejected
	case "Flagged for Review", "FLAGGED", "flagged", "FlaggedForReview":
		return FlaggedForReview
	default:
		return Unknown
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed := OutcomeFrom(s)
	if parsed == Unknown {
		return fmt.Errorf("unknown outcome %q", s)
	}
	*o = parsed
	return nil
}

// Decision is the result of evaluating one applicant.
type Decision struct {
	Status      Outcome `json:"status"`
	Reason      string  `json:"reason"`
	ApplicantID *int64  `json:"applicantId"`
	RuleID      string  `json:"ruleId"`
}

// AuditEvent is the record appended to the audit trail for every decision.
type AuditEvent struct {
	EventID       string    `json:"eventId"`
	Outcome       Outcome   `json:"outcome"`
	Reason        string    `json:"reason"`
	ApplicantID   *int64    `json:"applicantId"`
	RuleID        string    `json:"ruleId"`
	ConsensusRisk RiskLabel `json:"consensusRisk"`
	DecidedAt     time.Time `json:"decidedAt"`
}

// ApplicantRef renders the applicant identifier, or an empty placeholder when absent.
func (e AuditEvent) ApplicantRef() string {
	if e.ApplicantID == nil {
		return ""
	}
	return strconv.FormatInt(*e.ApplicantID, 10)
}

// Headline is the first audit line, e.g. "REJECTED Applicant 42".
func (e AuditEvent) Headline() string {
	return fmt.Sprintf("%s Applicant %s", e.Outcome.AuditLabel(), e.ApplicantRef())
}
