package rtcdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataChannelStateString(t *testing.T) {
	assert.Equal(t, "connecting", DataChannelStateConnecting.String())
	assert.Equal(t, "open", DataChannelStateOpen.String())
	assert.Equal(t, "closing", DataChannelStateClosing.String())
	assert.Equal(t, "closed", DataChannelStateClosed.String())
	assert.Equal(t, "unknown", DataChannelState(99).String())
}
