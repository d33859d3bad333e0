package actions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureReason(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", FailureReason(nil))
	assert.Equal(permissionNote, FailureReason(fmt.Errorf("ban: %w", ErrMissingPermission)))
	assert.Equal("unknown member", FailureReason(fmt.Errorf("unknown member")))
}

func TestFailureKind(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("none", FailureKind(nil))
	assert.Equal("permission", FailureKind(fmt.Errorf("wrapped: %w", ErrMissingPermission)))
	assert.Equal("canceled", FailureKind(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Equal("other", FailureKind(fmt.Errorf("something else")))
}
