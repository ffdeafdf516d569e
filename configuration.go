package rtcdc

import (
	"fmt"

	"github.com/tokarevvit/rtcdc/internal/icetransport"
)

// ICEServerType tags a configured ICE server as STUN or TURN.
type ICEServerType int

const (
	ICEServerTypeSTUN ICEServerType = iota
	ICEServerTypeTURN
)

func (t ICEServerType) String() string {
	switch t {
	case ICEServerTypeSTUN:
		return "stun"
	case ICEServerTypeTURN:
		return "turn"
	default:
		return "unknown"
	}
}

// ICEServer describes one STUN or TURN server. TURN servers require
// Username/Credential; STUN servers usually don't.
type ICEServer struct {
	Host       string
	Port       uint16
	Type       ICEServerType
	Username   string
	Credential string
}

// Configuration configures the ICE agent an Endpoint builds.
//
// Grounded on librtcdcpp's RTCConfiguration/IceConfig: only one STUN server
// is ever wired into the agent, matching NiceWrapper::AddStunServers, which
// throws if more than one STUN RTCConfiguration is passed. That restriction
// is not a bug here -- §9 of the spec calls it out as deliberately retained
// -- so Configuration.ICEServers (plural) still accepts a TURN server list
// of any length alongside it.
type Configuration struct {
	ICEServers []ICEServer
}

// stunServer returns the configuration's single STUN server, or nil if none
// was configured. It returns ErrTooManySTUNServers if more than one is
// present.
func (c Configuration) stunServer() (*ICEServer, error) {
	var stun *ICEServer
	for i := range c.ICEServers {
		if c.ICEServers[i].Type != ICEServerTypeSTUN {
			continue
		}
		if stun != nil {
			return nil, ErrTooManySTUNServers
		}
		s := c.ICEServers[i]
		stun = &s
	}
	return stun, nil
}

func (c Configuration) turnServers() []ICEServer {
	var turns []ICEServer
	for _, s := range c.ICEServers {
		if s.Type == ICEServerTypeTURN {
			turns = append(turns, s)
		}
	}
	return turns
}

// iceServerList validates the single-STUN-server rule and renders every
// configured server as a stun:/turn: URL for the ICE agent, grounded on
// NiceWrapper::AddStunServers/AddTurnServers's host:port formatting.
func (c Configuration) iceServerList() ([]icetransport.Server, error) {
	stun, err := c.stunServer()
	if err != nil {
		return nil, err
	}

	var out []icetransport.Server
	if stun != nil {
		out = append(out, icetransport.Server{URL: fmt.Sprintf("stun:%s:%d", stun.Host, stun.Port)})
	}
	for _, t := range c.turnServers() {
		out = append(out, icetransport.Server{
			URL:        fmt.Sprintf("turn:%s:%d", t.Host, t.Port),
			Username:   t.Username,
			Credential: t.Credential,
		})
	}
	return out, nil
}
