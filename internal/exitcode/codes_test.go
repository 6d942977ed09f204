package exitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{Success, "Success"},
		{Error, "Error"},
		{StepFailed, "StepFailed"},
		{QueueFailures, "QueueFailures"},
		{ChecksFailed, "ChecksFailed"},
		{Interrupted, "Interrupted"},
		{99, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.code))
	}
}

func TestCodeValues(t *testing.T) {
	assert.Equal(t, 0, Success)
	assert.Equal(t, 1, Error)
	assert.Equal(t, 2, StepFailed)
	assert.Equal(t, 3, QueueFailures)
	assert.Equal(t, 4, ChecksFailed)
	assert.Equal(t, 130, Interrupted)
}
