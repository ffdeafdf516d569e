package rtcdc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sentText   []string
	sentBinary [][]byte
	closedSIDs []uint16
	sendErr    error
	closeErr   error
}

func (f *fakeSender) sendText(sid uint16, s string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentText = append(f.sentText, s)
	return nil
}

func (f *fakeSender) sendBinary(sid uint16, b []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentBinary = append(f.sentBinary, b)
	return nil
}

func (f *fakeSender) closeChannel(sid uint16) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closedSIDs = append(f.closedSIDs, sid)
	return nil
}

func TestDataChannelAccessors(t *testing.T) {
	dc := newDataChannel(&fakeSender{}, 4, ChannelReliableOrdered, "chat", "json", 0, DataChannelStateConnecting)

	assert.Equal(t, uint16(4), dc.SID())
	assert.Equal(t, ChannelReliableOrdered, dc.Kind())
	assert.Equal(t, "chat", dc.Label())
	assert.Equal(t, "json", dc.Protocol())
	assert.Equal(t, uint32(0), dc.Reliability())
	assert.Equal(t, DataChannelStateConnecting, dc.State())
}

func TestDataChannelSendRejectedBeforeOpen(t *testing.T) {
	sender := &fakeSender{}
	dc := newDataChannel(sender, 2, ChannelReliableOrdered, "chat", "", 0, DataChannelStateConnecting)

	err := dc.SendText("hello")
	var unknown *UnknownChannelError
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, sender.sentText)

	err = dc.SendBinary([]byte("hi"))
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, sender.sentBinary)
}

func TestDataChannelSendAfterOpen(t *testing.T) {
	sender := &fakeSender{}
	dc := newDataChannel(sender, 2, ChannelReliableOrdered, "chat", "", 0, DataChannelStateConnecting)
	dc.fireOpen()

	require.NoError(t, dc.SendText("hello"))
	require.NoError(t, dc.SendBinary([]byte("hi")))

	assert.Equal(t, []string{"hello"}, sender.sentText)
	assert.Equal(t, [][]byte{[]byte("hi")}, sender.sentBinary)
	assert.Equal(t, DataChannelStateOpen, dc.State())
}

func TestDataChannelFireOpenInvokesCallbackOnce(t *testing.T) {
	dc := newDataChannel(&fakeSender{}, 0, ChannelReliableOrdered, "chat", "", 0, DataChannelStateConnecting)

	calls := 0
	dc.OnOpen(func() { calls++ })
	dc.fireOpen()

	assert.Equal(t, 1, calls)
	assert.Equal(t, DataChannelStateOpen, dc.State())
}

func TestDataChannelFireClosedInvokesCallback(t *testing.T) {
	dc := newDataChannel(&fakeSender{}, 0, ChannelReliableOrdered, "chat", "", 0, DataChannelStateOpen)

	closed := false
	dc.OnClose(func() { closed = true })
	dc.fireClosed()

	assert.True(t, closed)
	assert.Equal(t, DataChannelStateClosed, dc.State())
}

func TestDataChannelFireStringAndBinaryDeliverPayload(t *testing.T) {
	dc := newDataChannel(&fakeSender{}, 0, ChannelReliableOrdered, "chat", "", 0, DataChannelStateOpen)

	var gotString string
	var gotBinary []byte
	dc.OnString(func(s string) { gotString = s })
	dc.OnBinary(func(b []byte) { gotBinary = b })

	dc.fireString("hi")
	dc.fireBinary([]byte{1, 2})

	assert.Equal(t, "hi", gotString)
	assert.Equal(t, []byte{1, 2}, gotBinary)
}

func TestDataChannelCloseTransitionsToClosingAndDelegates(t *testing.T) {
	sender := &fakeSender{}
	dc := newDataChannel(sender, 6, ChannelReliableOrdered, "chat", "", 0, DataChannelStateOpen)

	require.NoError(t, dc.Close())
	assert.Equal(t, DataChannelStateClosing, dc.State())
	assert.Equal(t, []uint16{6}, sender.closedSIDs)
}

func TestDataChannelCloseReturnsUnderlyingError(t *testing.T) {
	sender := &fakeSender{closeErr: errors.New("reset denied")}
	dc := newDataChannel(sender, 6, ChannelReliableOrdered, "chat", "", 0, DataChannelStateOpen)

	err := dc.Close()
	assert.Error(t, err)
}
