package rtcdc

import "sync"

// channelSender is the narrow, bounded handle a DataChannel holds back to
// its owning Endpoint. It deliberately exposes only what a channel needs to
// send and close itself -- never the full Endpoint -- so the
// Endpoint<->DataChannel reference cycle never lets a channel reach back
// into registry internals or other channels (spec §9's "never give the
// channel an owning reference to the endpoint").
type channelSender interface {
	sendText(sid uint16, s string) error
	sendBinary(sid uint16, b []byte) error
	closeChannel(sid uint16) error
}

// DataChannel is a labeled, stream-oriented channel carrying UTF-8 text or
// binary payloads over one SCTP stream id. DataChannel objects are jointly
// referenced by the Endpoint and the application; a channel survives until
// both drop it or a CLOSE is delivered (spec §3).
type DataChannel struct {
	sid         uint16
	kind        ChannelKind
	label       string
	protocol    string
	reliability uint32

	owner channelSender

	mu    sync.Mutex
	state DataChannelState

	onOpen   func()
	onClose  func()
	onString func(string)
	onBinary func([]byte)
}

func newDataChannel(owner channelSender, sid uint16, kind ChannelKind, label, protocol string, reliability uint32, state DataChannelState) *DataChannel {
	return &DataChannel{
		owner:       owner,
		sid:         sid,
		kind:        kind,
		label:       label,
		protocol:    protocol,
		reliability: reliability,
		state:       state,
	}
}

// SID returns the channel's SCTP stream id.
func (d *DataChannel) SID() uint16 { return d.sid }

// Kind returns the channel's reliability/ordering kind.
func (d *DataChannel) Kind() ChannelKind { return d.kind }

// Label returns the channel's label, as set by whichever side opened it.
func (d *DataChannel) Label() string { return d.label }

// Protocol returns the channel's sub-protocol string.
func (d *DataChannel) Protocol() string { return d.protocol }

// Reliability returns the channel's reliability parameter: a max
// retransmit count, a lifetime in milliseconds, or 0, depending on Kind().
func (d *DataChannel) Reliability() uint32 { return d.reliability }

// State returns the channel's current lifecycle state.
func (d *DataChannel) State() DataChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *DataChannel) setState(s DataChannelState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// OnOpen registers the callback fired once the channel transitions to Open.
func (d *DataChannel) OnOpen(f func()) { d.mu.Lock(); d.onOpen = f; d.mu.Unlock() }

// OnClose registers the callback fired once the channel transitions to
// Closed.
func (d *DataChannel) OnClose(f func()) { d.mu.Lock(); d.onClose = f; d.mu.Unlock() }

// OnString registers the callback fired for each inbound text message.
func (d *DataChannel) OnString(f func(string)) { d.mu.Lock(); d.onString = f; d.mu.Unlock() }

// OnBinary registers the callback fired for each inbound binary message.
func (d *DataChannel) OnBinary(f func([]byte)) { d.mu.Lock(); d.onBinary = f; d.mu.Unlock() }

func (d *DataChannel) fireOpen() {
	d.setState(DataChannelStateOpen)
	d.mu.Lock()
	f := d.onOpen
	d.mu.Unlock()
	if f != nil {
		f()
	}
}

func (d *DataChannel) fireClosed() {
	d.setState(DataChannelStateClosed)
	d.mu.Lock()
	f := d.onClose
	d.mu.Unlock()
	if f != nil {
		f()
	}
}

func (d *DataChannel) fireString(s string) {
	d.mu.Lock()
	f := d.onString
	d.mu.Unlock()
	if f != nil {
		f(s)
	}
}

func (d *DataChannel) fireBinary(b []byte) {
	d.mu.Lock()
	f := d.onBinary
	d.mu.Unlock()
	if f != nil {
		f(b)
	}
}

// SendText transmits a UTF-8 text message. The channel must be Open.
func (d *DataChannel) SendText(s string) error {
	if d.State() != DataChannelStateOpen {
		return &UnknownChannelError{SID: d.sid}
	}
	return d.owner.sendText(d.sid, s)
}

// SendBinary transmits a binary message. The channel must be Open.
func (d *DataChannel) SendBinary(b []byte) error {
	if d.State() != DataChannelStateOpen {
		return &UnknownChannelError{SID: d.sid}
	}
	return d.owner.sendBinary(d.sid, b)
}

// Close issues an outgoing SCTP stream reset for this channel, transitioning
// it to Closing. The eventual stream-reset completion transitions it to
// Closed and removes it from the registry (spec §3, §4.4).
func (d *DataChannel) Close() error {
	d.setState(DataChannelStateClosing)
	return d.owner.closeChannel(d.sid)
}
