// Package dcep implements the wire encoding for the Data Channel
// Establishment Protocol control messages (RFC 8832): DATA_CHANNEL_OPEN
// and DATA_CHANNEL_ACK.
//
// Grounded on pion/webrtc's pkg/datachannel (message.go,
// message_channel_open.go, message_channel_ack.go): the big-endian field
// layout and message-type dispatch mirror that package closely. Unlike
// librtcdcpp's HandleNewDataChannel (src/PeerConnection.cpp), which reads
// multi-byte OPEN fields with ad-hoc shift-and-or that the spec (§9) flags
// as inconsistent with the network-byte-order encoder, every field here
// goes through encoding/binary.BigEndian on both encode and decode paths.
package dcep

import (
	"encoding/binary"
	"fmt"
)

// MessageType is the first byte of every DCEP control message.
type MessageType byte

const (
	TypeAck  MessageType = 0x02
	TypeOpen MessageType = 0x03
	// TypeClose is never marshaled to the wire by this endpoint. It shares
	// the message-type space so callers can dispatch on it the same way as
	// Open/Ack; sctptransport reports a completed stream reset through its
	// OnClose callback rather than through this marker.
	TypeClose MessageType = 0x04
)

func (t MessageType) String() string {
	switch t {
	case TypeAck:
		return "ack"
	case TypeOpen:
		return "open"
	case TypeClose:
		return "close"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

const openHeaderLength = 12

// Open is a parsed DATA_CHANNEL_OPEN message.
//
//	offset  size  field
//	0       1     msg_type = 0x03
//	1       1     chan_type
//	2       2     priority
//	4       4     reliability_param
//	8       2     label_len
//	10      2     protocol_len
//	12      L     label bytes (UTF-8)
//	12+L    P     protocol bytes (UTF-8)
type Open struct {
	ChanType          byte
	Priority          uint16
	ReliabilityParam  uint32
	Label             string
	Protocol          string
}

// Marshal encodes o as a DATA_CHANNEL_OPEN message.
func (o Open) Marshal() []byte {
	label := []byte(o.Label)
	protocol := []byte(o.Protocol)

	buf := make([]byte, openHeaderLength+len(label)+len(protocol))
	buf[0] = byte(TypeOpen)
	buf[1] = o.ChanType
	binary.BigEndian.PutUint16(buf[2:4], o.Priority)
	binary.BigEndian.PutUint32(buf[4:8], o.ReliabilityParam)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(label)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(protocol)))
	copy(buf[12:], label)
	copy(buf[12+len(label):], protocol)
	return buf
}

// ParseOpen decodes a DATA_CHANNEL_OPEN message. raw must include the
// leading msg_type byte.
func ParseOpen(raw []byte) (*Open, error) {
	if len(raw) < openHeaderLength {
		return nil, fmt.Errorf("dcep: open message too short: %d bytes", len(raw))
	}
	if MessageType(raw[0]) != TypeOpen {
		return nil, fmt.Errorf("dcep: expected open, got %s", MessageType(raw[0]))
	}

	labelLen := binary.BigEndian.Uint16(raw[8:10])
	protocolLen := binary.BigEndian.Uint16(raw[10:12])
	want := openHeaderLength + int(labelLen) + int(protocolLen)
	if len(raw) != want {
		return nil, fmt.Errorf("dcep: open message length %d does not match header (want %d)", len(raw), want)
	}

	return &Open{
		ChanType:         raw[1],
		Priority:         binary.BigEndian.Uint16(raw[2:4]),
		ReliabilityParam: binary.BigEndian.Uint32(raw[4:8]),
		Label:            string(raw[12 : 12+labelLen]),
		Protocol:         string(raw[12+labelLen : 12+labelLen+protocolLen]),
	}, nil
}

// MarshalAck encodes the single-byte DATA_CHANNEL_ACK message.
func MarshalAck() []byte {
	return []byte{byte(TypeAck)}
}

// IsAck reports whether raw looks like a DATA_CHANNEL_ACK message (first
// byte only; trailing bytes are not rejected).
func IsAck(raw []byte) bool {
	return len(raw) >= 1 && MessageType(raw[0]) == TypeAck
}

// IsOpen reports whether raw looks like a DATA_CHANNEL_OPEN message (first
// byte only; use ParseOpen to validate and decode).
func IsOpen(raw []byte) bool {
	return len(raw) >= 1 && MessageType(raw[0]) == TypeOpen
}

// IsClose reports whether raw starts with the CLOSE marker byte (first byte
// only; trailing bytes are not rejected).
func IsClose(raw []byte) bool {
	return len(raw) >= 1 && MessageType(raw[0]) == TypeClose
}

// MarshalClose encodes the single-byte internal CLOSE marker. Not put on
// the wire by this endpoint, and not used by sctptransport, which signals a
// completed stream reset through OnClose instead.
func MarshalClose() []byte {
	return []byte{byte(TypeClose)}
}
