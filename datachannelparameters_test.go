package rtcdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelKindUnordered(t *testing.T) {
	unordered := []ChannelKind{
		ChannelReliableUnordered,
		ChannelPartialReliableRexmitUnordered,
		ChannelPartialReliableTimedUnordered,
	}
	ordered := []ChannelKind{
		ChannelReliableOrdered,
		ChannelPartialReliableRexmit,
		ChannelPartialReliableTimed,
	}

	for _, k := range unordered {
		assert.Truef(t, k.Unordered(), "%v should be unordered", k)
	}
	for _, k := range ordered {
		assert.Falsef(t, k.Unordered(), "%v should not be unordered", k)
	}
}

func TestChannelKindReliabilitySelectors(t *testing.T) {
	assert.True(t, ChannelPartialReliableTimed.IsTimed())
	assert.True(t, ChannelPartialReliableTimedUnordered.IsTimed())
	assert.False(t, ChannelReliableOrdered.IsTimed())

	assert.True(t, ChannelPartialReliableRexmit.IsPartialReliableRexmit())
	assert.True(t, ChannelPartialReliableRexmitUnordered.IsPartialReliableRexmit())
	assert.False(t, ChannelPartialReliableTimed.IsPartialReliableRexmit())

	// A channel kind is never both timed and rexmit-limited.
	all := []ChannelKind{
		ChannelReliableOrdered, ChannelReliableUnordered,
		ChannelPartialReliableRexmit, ChannelPartialReliableRexmitUnordered,
		ChannelPartialReliableTimed, ChannelPartialReliableTimedUnordered,
	}
	for _, k := range all {
		assert.Falsef(t, k.IsTimed() && k.IsPartialReliableRexmit(), "%v cannot be both timed and rexmit", k)
	}
}

func TestChannelKindString(t *testing.T) {
	assert.Equal(t, "reliable-ordered", ChannelReliableOrdered.String())
	assert.Equal(t, "unknown", ChannelKind(0xAB).String())
}
