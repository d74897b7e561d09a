package dberrors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsUnwrapToSentinelAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk I/O error")
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"connection", &ConnectionError{Op: "open", URL: "file:x.db", Err: cause}, ErrConnection},
		{"timeout", &TimeoutError{SQL: "SELECT 1", Timeout: "5s", Err: cause}, ErrTimeout},
		{"sql", &SQLError{SQL: "SELEC", Err: cause}, ErrSQL},
		{"format", &FormatError{Type: "INTEGER", Input: "abc", Err: cause}, ErrFormat},
		{"capability", &CapabilityError{Table: "people", Operation: "refetch", Err: cause}, ErrCapability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, tt.err, cause)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestAmbiguousRowError(t *testing.T) {
	t.Parallel()

	err := error(&AmbiguousRowError{Table: "people", Operation: "update", Affected: 2})
	assert.ErrorIs(t, err, ErrAmbiguousRow)
	assert.Equal(t, "update on people matched 2 rows, want exactly 1", err.Error())

	var are *AmbiguousRowError
	require.ErrorAs(t, err, &are)
	assert.EqualValues(t, 2, are.Affected)
}

func TestIsTimeoutAndIsConstraint(t *testing.T) {
	t.Parallel()

	timeout := &TimeoutError{SQL: "SELECT 1", Timeout: "5s", Err: context.DeadlineExceeded}
	assert.True(t, IsTimeout(timeout))
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.False(t, IsTimeout(errors.New("other")))

	assert.True(t, IsConstraint(&SQLError{Constraint: true, Err: errors.New("UNIQUE")}))
	assert.False(t, IsConstraint(&SQLError{Err: errors.New("syntax")}))
	assert.Equal(t, "constraint violation (2067): UNIQUE", (&SQLError{Code: "2067", Constraint: true, Err: errors.New("UNIQUE")}).Error())
}
