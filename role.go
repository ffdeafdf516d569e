package rtcdc

// Role is the DTLS client/server role this endpoint plays, derived from the
// remote SDP's a=setup: attribute (see ParseOffer). It is also used to pick
// the even/odd stream-id parity this endpoint allocates for locally
// initiated data channels.
type Role int

const (
	// RoleClient is the default role before any remote SDP has been parsed.
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}
