package sctptransport

import (
	"testing"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
)

func newTestTransport() *Transport {
	return newTransport(nil, logging.NewDefaultLoggerFactory())
}

func TestOnOpenFiresRegisteredCallback(t *testing.T) {
	tr := newTestTransport()

	var got OpenMessage
	called := false
	tr.OnOpen(func(m OpenMessage) {
		called = true
		got = m
	})

	want := OpenMessage{SID: 4, ChanType: 0x00, Label: "chat"}
	tr.fireOpen(want)

	assert.True(t, called)
	assert.Equal(t, want, got)
}

func TestOnAckFiresWithSID(t *testing.T) {
	tr := newTestTransport()

	var gotSID uint16
	tr.OnAck(func(sid uint16) { gotSID = sid })
	tr.fireAck(9)

	assert.Equal(t, uint16(9), gotSID)
}

func TestOnStringAndOnBinaryFire(t *testing.T) {
	tr := newTestTransport()

	var gotString string
	var gotBinary []byte
	tr.OnString(func(sid uint16, s string) { gotString = s })
	tr.OnBinary(func(sid uint16, b []byte) { gotBinary = b })

	tr.fireString(1, "hello")
	tr.fireBinary(2, []byte{1, 2, 3})

	assert.Equal(t, "hello", gotString)
	assert.Equal(t, []byte{1, 2, 3}, gotBinary)
}

func TestOnCloseFiresOnce(t *testing.T) {
	tr := newTestTransport()

	count := 0
	tr.OnClose(func(sid uint16) { count++ })
	tr.fireClose(5)

	assert.Equal(t, 1, count)
}

func TestCallbacksAreNoOpsWhenUnregistered(t *testing.T) {
	tr := newTestTransport()
	assert.NotPanics(t, func() {
		tr.fireOpen(OpenMessage{})
		tr.fireAck(0)
		tr.fireString(0, "")
		tr.fireBinary(0, nil)
		tr.fireClose(0)
	})
}

func TestSendFailsForUnknownStream(t *testing.T) {
	tr := newTestTransport()

	err := tr.SendText(42, "hi")
	assert.Error(t, err)

	err = tr.SendBinary(42, []byte("hi"))
	assert.Error(t, err)
}

func TestResetStreamFailsForUnknownStream(t *testing.T) {
	tr := newTestTransport()
	err := tr.ResetStream(42)
	assert.Error(t, err)
}

func TestCancelMarksTransportCancelled(t *testing.T) {
	tr := newTestTransport()
	assert.False(t, tr.isCancelled())
	tr.Cancel()
	assert.True(t, tr.isCancelled())
}
