package rtcdc

import "github.com/pion/randutil"

const sessionIDDigits = "0123456789"

// newSessionID generates a fresh 16-character decimal session id for an
// SDP o= line (spec §3's SessionId).
//
// Grounded on pion/ice's ufrag/pwd generation, which leans on
// randutil.GenerateCryptoRandomString rather than librtcdcpp's raw
// rand()%10 loop (src/PeerConnection.cpp's random_session_id).
func newSessionID() (string, error) {
	return randutil.GenerateCryptoRandomString(sessionIDLength, sessionIDDigits)
}
