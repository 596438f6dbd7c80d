// internal/workers/decisioning/notify-underwriting-review/models.go
package notifyunderwritingreview

type Input struct {
	CorrelationID string `json:"correlationId"`
	ApplicantID   *int64 `json:"applicantId,omitempty"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
	RuleID        string `json:"ruleId"`

	// Set by a previous failed attempt.
	NotifiedChannels []string `json:"notifiedChannels,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"`
}

const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

const (
	ChannelSNS   = "sns"
	ChannelEmail = "email"
)

const (
	subjectTemplate = "Loan application {{applicantId}} needs underwriting review"
	bodyTemplate    = `Applicant {{applicantId}} was flagged for manual review.

Reason: {{reason}}
Rule: {{ruleId}}
Correlation: {{correlationId}}`
)
