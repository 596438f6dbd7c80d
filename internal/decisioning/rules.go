// internal/decisioning/rules.go
package decisioning

import (
	"fmt"

	"loan-workers/internal/models"
)

const (
	DefaultCreditScoreThreshold = 600
	DefaultIncomeThreshold      = 20000

	// MaxBorrowingMultiple caps the requested credit as a multiple of income.
	MaxBorrowingMultiple  = 5
	MaxLoanDurationMonths = 60
	MaxJobChanges         = 3
	MinimumAge            = 18
)

const (
	RuleMinimumAge            = "minimum-age"
	RuleCreditAndIncome       = "credit-and-income"
	RuleCreditScore           = "credit-score"
	RuleIncome                = "income"
	RuleBorrowingLimit        = "borrowing-limit"
	RuleNoBankAccounts        = "no-bank-accounts"
	RuleLoanDuration          = "loan-duration"
	RuleEmploymentInstability = "employment-instability"
	RuleHighRisk              = "high-risk"
	RuleApproved              = "approved"
)

const (
	ReasonMinimumAge            = "Applicant must be at least 18 years old."
	ReasonCreditAndIncome       = "Credit score and income below minimum thresholds."
	ReasonCreditScore           = "Credit score below minimum threshold."
	ReasonIncome                = "Income below minimum threshold."
	ReasonBorrowingLimit        = "Requested credit exceeds safe borrowing limit."
	ReasonNoBankAccounts        = "No active bank accounts/balances so financial stability is unclear - review required."
	ReasonLoanDuration          = "Loan duration exceeds maximum allowed term - review required."
	ReasonEmploymentInstability = "Frequent job changes indicates employment instability - review required."
	ReasonHighRisk              = "Application rejected due to high risk classification."
	ReasonApproved              = "Application approved as it meets all criteria."
)

// PolicyConfig holds the tunable part of the rule table.
type PolicyConfig struct {
	CreditScoreThreshold float64 `mapstructure:"credit_score_threshold"`
	IncomeThreshold      float64 `mapstructure:"income_threshold"`
	// EvaluateIndependently splits the credit/income rejection into two rules.
	EvaluateIndependently bool `mapstructure:"evaluate_independently"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		CreditScoreThreshold: DefaultCreditScoreThreshold,
		IncomeThreshold:      DefaultIncomeThreshold,
	}
}

// Rule is one row of the ordered policy table.
type Rule struct {
	ID        string
	Condition string
	Outcome   models.Outcome
	Reason    string
	matches   func(a models.ApplicantRecord, risk models.RiskLabel) bool
}

func (r Rule) Matches(a models.ApplicantRecord, risk models.RiskLabel) bool {
	return r.matches(a, risk)
}

// Policy is an immutable, ordered rule table. Safe for concurrent use.
type Policy struct {
	config PolicyConfig
	rules  []Rule
}

func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{config: cfg, rules: buildRules(cfg)}
}

func (p *Policy) Config() PolicyConfig {
	return p.config
}

// Rules returns a copy of the table in evaluation order.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// Evaluate returns the first rule matching the applicant.
// The two risk rules partition every valid label, so a match always exists for valid input.
func (p *Policy) Evaluate(a models.ApplicantRecord, risk models.RiskLabel) (Rule, bool) {
	for _, rule := range p.rules {
		if rule.matches(a, risk) {
			return rule, true
		}
	}
	return Rule{}, false
}

func buildRules(cfg PolicyConfig) []Rule {
	rules := []Rule{
		{
			ID:        RuleMinimumAge,
			Condition: fmt.Sprintf("age < %d", MinimumAge),
			Outcome:   models.Rejected,
			Reason:    ReasonMinimumAge,
			matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
				return a.Age < MinimumAge
			},
		},
	}

	if cfg.EvaluateIndependently {
		rules = append(rules,
			Rule{
				ID:        RuleCreditScore,
				Condition: fmt.Sprintf("creditScore < %g", cfg.CreditScoreThreshold),
				Outcome:   models.Rejected,
				Reason:    ReasonCreditScore,
				matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
					return a.CreditScore < cfg.CreditScoreThreshold
				},
			},
			Rule{
				ID:        RuleIncome,
				Condition: fmt.Sprintf("income < %g", cfg.IncomeThreshold),
				Outcome:   models.Rejected,
				Reason:    ReasonIncome,
				matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
					return a.Income < cfg.IncomeThreshold
				},
			},
		)
	} else {
		rules = append(rules, Rule{
			ID:        RuleCreditAndIncome,
			Condition: fmt.Sprintf("creditScore < %g AND income < %g", cfg.CreditScoreThreshold, cfg.IncomeThreshold),
			Outcome:   models.Rejected,
			Reason:    ReasonCreditAndIncome,
			matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
				return a.CreditScore < cfg.CreditScoreThreshold && a.Income < cfg.IncomeThreshold
			},
		})
	}

	return append(rules,
		Rule{
			ID:        RuleBorrowingLimit,
			Condition: fmt.Sprintf("creditAmount > income * %d", MaxBorrowingMultiple),
			Outcome:   models.Rejected,
			Reason:    ReasonBorrowingLimit,
			matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
				return a.CreditAmount > a.Income*MaxBorrowingMultiple
			},
		},
		Rule{
			ID:        RuleNoBankAccounts,
			Condition: "savingsLevel == 0 AND checkingLevel == 0",
			Outcome:   models.FlaggedForReview,
			Reason:    ReasonNoBankAccounts,
			matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
				return !a.HasBankAccounts()
			},
		},
		Rule{
			ID:        RuleLoanDuration,
			Condition: fmt.Sprintf("loanDurationMonths > %d", MaxLoanDurationMonths),
			Outcome:   models.FlaggedForReview,
			Reason:    ReasonLoanDuration,
			matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
				return a.LoanDurationMonths > MaxLoanDurationMonths
			},
		},
		Rule{
			ID:        RuleEmploymentInstability,
			Condition: fmt.Sprintf("numberOfJobs > %d", MaxJobChanges),
			Outcome:   models.FlaggedForReview,
			Reason:    ReasonEmploymentInstability,
			matches: func(a models.ApplicantRecord, _ models.RiskLabel) bool {
				return a.NumberOfJobs > MaxJobChanges
			},
		},
		Rule{
			ID:        RuleHighRisk,
			Condition: "consensusRisk == 1",
			Outcome:   models.Rejected,
			Reason:    ReasonHighRisk,
			matches: func(_ models.ApplicantRecord, risk models.RiskLabel) bool {
				return risk == models.RiskBad
			},
		},
		Rule{
			ID:        RuleApproved,
			Condition: "consensusRisk == 0",
			Outcome:   models.Approved,
			Reason:    ReasonApproved,
			matches: func(_ models.ApplicantRecord, risk models.RiskLabel) bool {
				return risk == models.RiskGood
			},
		},
	)
}
