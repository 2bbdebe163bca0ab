package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/satqueue/internal/models"
)

func TestClassify_SAT(t *testing.T) {
	result, status := classify(1, 10, SolverOutcome{
		ExitCode: exitCodeSAT,
		Stdout:   "A -> TRUE\n",
		RuntimeS: 0.1,
	})
	assert.Equal(t, models.RunStatusCompleted, status)
	assert.Equal(t, models.OutcomeSAT, result.Result)
	assert.Equal(t, map[string]bool{"A": true}, result.Assignment)
}

func TestClassify_UNSAT(t *testing.T) {
	result, status := classify(1, 10, SolverOutcome{
		ExitCode: exitCodeUNSAT,
		Stdout:   "UNSAT\n",
		RuntimeS: 0.1,
	})
	assert.Equal(t, models.RunStatusCompleted, status)
	assert.Equal(t, models.OutcomeUNSAT, result.Result)
	assert.Nil(t, result.Assignment)
}

func TestClassify_ParseError(t *testing.T) {
	result, status := classify(1, 10, SolverOutcome{
		ExitCode: exitCodeParseError,
		Stderr:   "parse error at token 2",
		RuntimeS: 0.01,
	})
	assert.Equal(t, models.RunStatusFailed, status)
	assert.Equal(t, models.OutcomeError, result.Result)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeParseError, *result.ErrorType)
	assert.Equal(t, "parse error at token 2", *result.ErrorMessage)
}

func TestClassify_Timeout(t *testing.T) {
	result, status := classify(1, 10, SolverOutcome{TimedOut: true, RuntimeS: 10})
	assert.Equal(t, models.RunStatusTimeout, status)
	assert.Equal(t, models.OutcomeTimeout, result.Result)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeTimeout, *result.ErrorType)
	assert.Equal(t, float64(10), result.RuntimeS)
}

func TestClassify_BinaryNotFound(t *testing.T) {
	result, status := classify(1, 10, SolverOutcome{BinaryNotFound: true})
	assert.Equal(t, models.RunStatusFailed, status)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeBinaryNotFound, *result.ErrorType)
}

func TestClassify_UnexpectedReturnCode(t *testing.T) {
	result, status := classify(1, 10, SolverOutcome{ExitCode: 77, RuntimeS: 0.2})
	assert.Equal(t, models.RunStatusFailed, status)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeUnexpectedRC, *result.ErrorType)
}
