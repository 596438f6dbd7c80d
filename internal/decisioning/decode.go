// internal/decisioning/decode.go
package decisioning

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"loan-workers/internal/common/validation"
	"loan-workers/internal/models"
)

// fieldAliases maps the accepted spellings of each attribute to its canonical key.
// Covers the snake_case keys of the scoring form and the cleaned dataset column titles.
var fieldAliases = map[string]string{
	"applicantId":      "id",
	"applicant_id":     "id",
	"Sex":              "sex",
	"Age":              "age",
	"job":              "numberOfJobs",
	"Job":              "numberOfJobs",
	"number_of_jobs":   "numberOfJobs",
	"housing":          "housingStatus",
	"Housing":          "housingStatus",
	"savings_accounts": "savingsLevel",
	"Saving accounts":  "savingsLevel",
	"checking_account": "checkingLevel",
	"Checking account": "checkingLevel",
	"purpose":          "purposeCode",
	"Purpose":          "purposeCode",
	"credit_amount":    "creditAmount",
	"Credit amount":    "creditAmount",
	"duration":         "loanDurationMonths",
	"Duration":         "loanDurationMonths",
	"credit_score":     "creditScore",
	"Credit score":     "creditScore",
	"Income":           "income",
}

var requiredFields = []string{
	"age",
	"numberOfJobs",
	"housingStatus",
	"savingsLevel",
	"checkingLevel",
	"purposeCode",
	"creditAmount",
	"loanDurationMonths",
	"creditScore",
	"income",
}

var applicantSchema = buildApplicantSchema()

func buildApplicantSchema() map[string]interface{} {
	integer := map[string]interface{}{"type": "integer"}
	number := map[string]interface{}{"type": "number"}

	required := make([]interface{}, len(requiredFields))
	for i, f := range requiredFields {
		required[i] = f
	}

	return map[string]interface{}{
		"type":     "object",
		"required": required,
		"properties": map[string]interface{}{
			"id":                 integer,
			"sex":                integer,
			"age":                integer,
			"numberOfJobs":       integer,
			"housingStatus":      integer,
			"savingsLevel":       integer,
			"checkingLevel":      integer,
			"purposeCode":        integer,
			"creditAmount":       number,
			"loanDurationMonths": integer,
			"creditScore":        number,
			"income":             number,
		},
	}
}

// RequiredFields lists the canonical attribute names every applicant must carry.
func RequiredFields() []string {
	out := make([]string, len(requiredFields))
	copy(out, requiredFields)
	return out
}

// DecodeApplicant builds a typed record from loosely keyed variables.
// Absent or null required attributes yield a *MissingFieldError; wrongly typed ones yield ErrInvalidInput.
func DecodeApplicant(fields map[string]interface{}) (models.ApplicantRecord, error) {
	normalized, err := normalizeFields(fields)
	if err != nil {
		return models.ApplicantRecord{}, err
	}

	result, err := validation.Validate(applicantSchema, normalized)
	if err != nil {
		return models.ApplicantRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !result.Valid {
		if missing := result.FieldsWithCode(validation.CodeRequiredFieldMissing); len(missing) > 0 {
			sort.Strings(missing)
			return models.ApplicantRecord{}, &MissingFieldError{Fields: missing}
		}
		return models.ApplicantRecord{}, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(result.GetErrorMessages(), "; "))
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return models.ApplicantRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var applicant models.ApplicantRecord
	if err := json.Unmarshal(raw, &applicant); err != nil {
		return models.ApplicantRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return applicant, nil
}

// normalizeFields maps aliases onto canonical keys. The canonical spelling wins
// over any alias; two aliases of the same attribute without it are a conflict.
func normalizeFields(fields map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	spelledAs := map[string][]string{}
	for key, value := range fields {
		if value == nil {
			continue
		}
		canonical, aliased := fieldAliases[key]
		if !aliased {
			out[key] = value
			continue
		}
		if fields[canonical] != nil {
			continue
		}
		spelledAs[canonical] = append(spelledAs[canonical], key)
		out[canonical] = value
	}

	conflicts := make([]string, 0, len(spelledAs))
	for canonical, keys := range spelledAs {
		if len(keys) > 1 {
			sort.Strings(keys)
			conflicts = append(conflicts, fmt.Sprintf("%s (%s)", canonical, strings.Join(keys, ", ")))
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, fmt.Errorf("%w: conflicting spellings for %s", ErrInvalidInput, strings.Join(conflicts, "; "))
	}
	return out, nil
}
