package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/quotesync/internal/common"
)

func TestVersionMismatchError_IsConflict(t *testing.T) {
	var err error = &VersionMismatchError{ServerVersion: 5}

	assert.True(t, errors.Is(err, common.ErrConflict))
	assert.False(t, errors.Is(err, common.ErrTransport))

	wrapped := fmt.Errorf("sending update: %w", err)
	assert.True(t, errors.Is(wrapped, common.ErrConflict))

	var mismatch *VersionMismatchError
	assert.True(t, errors.As(wrapped, &mismatch))
	assert.Equal(t, int64(5), mismatch.ServerVersion)
}
