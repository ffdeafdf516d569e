package dcep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMarshalParseRoundTrip(t *testing.T) {
	o := Open{
		ChanType:         0x00,
		Priority:         256,
		ReliabilityParam: 0,
		Label:            "chat",
		Protocol:         "",
	}

	raw := o.Marshal()
	assert.Equal(t, byte(TypeOpen), raw[0])

	got, err := ParseOpen(raw)
	require.NoError(t, err)
	assert.Equal(t, o, *got)
}

func TestOpenMarshalEmptyLabelAndProtocol(t *testing.T) {
	o := Open{ChanType: 0x80, Priority: 0, ReliabilityParam: 3}
	raw := o.Marshal()
	assert.Len(t, raw, openHeaderLength)

	got, err := ParseOpen(raw)
	require.NoError(t, err)
	assert.Equal(t, "", got.Label)
	assert.Equal(t, "", got.Protocol)
}

func TestParseOpenRejectsShortMessage(t *testing.T) {
	_, err := ParseOpen([]byte{0x03, 0x00})
	assert.Error(t, err)
}

func TestParseOpenRejectsWrongType(t *testing.T) {
	raw := MarshalAck()
	_, err := ParseOpen(raw)
	assert.Error(t, err)
}

func TestParseOpenRejectsLengthMismatch(t *testing.T) {
	o := Open{Label: "foo", Protocol: "bar"}
	raw := o.Marshal()
	_, err := ParseOpen(raw[:len(raw)-1])
	assert.Error(t, err)
}

func TestAckRoundTrip(t *testing.T) {
	raw := MarshalAck()
	assert.True(t, IsAck(raw))
	assert.False(t, IsOpen(raw))
	assert.False(t, IsClose(raw))
}

func TestIsOpenDoesNotValidateLength(t *testing.T) {
	assert.True(t, IsOpen([]byte{0x03}))
}

func TestCloseMarker(t *testing.T) {
	raw := MarshalClose()
	assert.True(t, IsClose(raw))
	assert.False(t, IsAck(raw))
	assert.False(t, IsOpen(raw))
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "open", TypeOpen.String())
	assert.Equal(t, "ack", TypeAck.String())
	assert.Equal(t, "close", TypeClose.String())
	assert.Contains(t, MessageType(0xff).String(), "unknown")
}
