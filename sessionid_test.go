package rtcdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionIDLengthAndAlphabet(t *testing.T) {
	id, err := newSessionID()
	require.NoError(t, err)
	assert.Len(t, id, sessionIDLength)
	for _, r := range id {
		assert.Containsf(t, sessionIDDigits, string(r), "session id must be decimal digits, got %q", id)
	}
}

func TestNewSessionIDIsRandom(t *testing.T) {
	a, err := newSessionID()
	require.NoError(t, err)
	b, err := newSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
