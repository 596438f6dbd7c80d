package errors

import (
	"fmt"
	"testing"

	"loan-workers/internal/decisioning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeModelScoringFailed, 3},
		{ErrCodeDatabaseInsertFailed, 3},
		{ErrCodeDatabaseConnectionFailed, 3},
		{ErrCodeNotificationSendFailed, 3},
		{ErrCodeModelTimeout, 2},
		{ErrCodeInvalidInput, 0},
		{ErrCodeMissingField, 0},
		{ErrCodeDuplicateDecision, 0},
		{ErrCodeParseError, 0},
		{ErrCodeInternal, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
			assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewMissingFieldError([]string{"age", "income"})
	bpmn := ConvertToBPMNError(stdErr)

	assert.Equal(t, "MISSING_FIELD", bpmn.Code)
	assert.Equal(t, "Please complete all fields", bpmn.Message)
	assert.Equal(t, "age, income", bpmn.Details)
	assert.Equal(t, 0, bpmn.Retries)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "MISSING_FIELD", vars["errorCode"])
	assert.Equal(t, "MISSING_FIELD", vars["originalErrorCode"])
	assert.Equal(t, []string{"age", "income"}, vars["missingFields"])
	assert.Equal(t, false, vars["retryable"])
}

func TestConvertToBPMNError_NonRetryableOverridesTable(t *testing.T) {
	stdErr := NewModelScoringFailedError("random_forest", fmt.Errorf("503"))
	stdErr.Retryable = false

	assert.Equal(t, 0, ConvertToBPMNError(stdErr).Retries)
}

func TestConvertToBPMNError_UnmappedCodePassesThrough(t *testing.T) {
	bpmn := ConvertToBPMNError(NewTimeoutError("zeebe", fmt.Errorf("deadline")))

	assert.Equal(t, "TIMEOUT_ERROR", bpmn.Code)
	assert.Equal(t, 2, bpmn.Retries)
}

func TestFromDecisioningError(t *testing.T) {
	missing := FromDecisioningError(fmt.Errorf("decode: %w", &decisioning.MissingFieldError{Fields: []string{"credit_score"}}))
	require.NotNil(t, missing)
	assert.Equal(t, ErrCodeMissingField, missing.Code)
	assert.Equal(t, "credit_score", missing.Details)

	invalid := FromDecisioningError(fmt.Errorf("%w: vote 2", decisioning.ErrInvalidInput))
	require.NotNil(t, invalid)
	assert.Equal(t, ErrCodeInvalidInput, invalid.Code)
	assert.Contains(t, invalid.Details, "vote 2")

	assert.Nil(t, FromDecisioningError(fmt.Errorf("boom")))
}

func TestNormalize(t *testing.T) {
	dup := NewDuplicateDecisionError("corr-1")
	assert.Same(t, dup, Normalize(fmt.Errorf("record: %w", dup)))

	assert.Equal(t, ErrCodeInvalidInput, Normalize(decisioning.ErrInvalidInput).Code)

	internal := Normalize(fmt.Errorf("unexpected"))
	assert.Equal(t, ErrCodeInternal, internal.Code)
	assert.Equal(t, "unexpected", internal.Details)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "SCORING", GetErrorCategory(ErrCodeModelTimeout))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDuplicateDecision))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeMissingField))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestStandardError_Error(t *testing.T) {
	err := NewInvalidInputError("vote 7")
	assert.Equal(t, "StandardError[INVALID_INPUT]: Invalid decision input", err.Error())
	assert.False(t, err.Timestamp.IsZero())
}
