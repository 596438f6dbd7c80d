// internal/models/applicant.go
package models

// Housing codes as produced by the cleaned credit dataset.
const (
	HousingFree = 0
	HousingOwn  = 1
	HousingRent = 2
)

// Account balance levels shared by savings and checking accounts.
const (
	AccountNone      = 0
	AccountLittle    = 1
	AccountModerate  = 2
	AccountQuiteRich = 3
	AccountRich      = 4
)

// ApplicantRecord is the numeric-encoded applicant row a decision is made on.
// ID and Sex are echoed or used as model features only; decisioning never reads them.
type ApplicantRecord struct {
	ID                 *int64  `json:"id,omitempty"`
	Sex                *int    `json:"sex,omitempty"`
	Age                int     `json:"age"`
	NumberOfJobs       int     `json:"numberOfJobs"`
	HousingStatus      int     `json:"housingStatus"`
	SavingsLevel       int     `json:"savingsLevel"`
	CheckingLevel      int     `json:"checkingLevel"`
	PurposeCode        int     `json:"purposeCode"`
	CreditAmount       float64 `json:"creditAmount"`
	LoanDurationMonths int     `json:"loanDurationMonths"`
	CreditScore        float64 `json:"creditScore"`
	Income             float64 `json:"income"`
}

// HasBankAccounts reports whether either account carries a balance.
func (a ApplicantRecord) HasBankAccounts() bool {
	return a.SavingsLevel != AccountNone || a.CheckingLevel != AccountNone
}

// Features returns the classifier feature vector keyed by dataset column title.
func (a ApplicantRecord) Features() map[string]interface{} {
	sex := 0
	if a.Sex != nil {
		sex = *a.Sex
	}
	return map[string]interface{}{
		"Age":              a.Age,
		"Sex":              sex,
		"Job":              a.NumberOfJobs,
		"Housing":          a.HousingStatus,
		"Saving accounts":  a.SavingsLevel,
		"Checking account": a.CheckingLevel,
		"Credit amount":    a.CreditAmount,
		"Duration":         a.LoanDurationMonths,
		"Purpose":          a.PurposeCode,
	}
}
