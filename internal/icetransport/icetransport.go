// Package icetransport wraps a pion/ice Agent as the lowest stage of the
// send/receive pipeline described in spec §4.2: it owns candidate gathering
// and trickle, ICE connectivity checks, and produces a net.Conn once
// connectivity completes.
//
// Grounded on pion-webrtc's icegatherer.go/icetransport.go (NewAgent from an
// AgentConfig built out of validated ICEServer URLs, GetLocalUserCredentials
// for the ufrag/pwd pair, agent.Dial/agent.Accept to obtain a net.Conn keyed
// off Role). That snapshot's Agent gathers synchronously inside Gather();
// the real pion/ice/v4 Agent this module depends on gathers asynchronously
// and reports candidates via OnCandidate, so trickle here follows the
// modern Agent API instead: OnCandidate is registered before
// GatherCandidates is called, and a nil candidate marks gathering complete
// (spec §4.2's end-of-candidates signal).
package icetransport

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/ice/v4"
	"github.com/pion/logging"
)

// Role picks which side of the ICE handshake this agent plays: the
// offering side dials (Controlling), the answering side accepts
// (Controlled). Unlike libnice, which negotiates the controlling role via
// an internal tie-breaker, pion/ice requires the caller to choose, so this
// endpoint resolves it by fiat: whoever generates the offer controls.
type Role int

const (
	Controlling Role = iota
	Controlled
)

// Server describes one STUN or TURN server to wire into the ICE agent's
// URL list.
type Server struct {
	URL        string
	Username   string
	Credential string
}

// Transport drives one ICE agent from construction through to a connected
// net.Conn.
type Transport struct {
	log logging.LeveledLogger

	mu    sync.Mutex
	agent *ice.Agent

	onLocalCandidate func(candidate string)
}

// New creates an ICE agent configured with the given STUN/TURN servers.
func New(servers []Server, loggerFactory logging.LoggerFactory) (*Transport, error) {
	var urls []*ice.URL
	for _, s := range servers {
		u, err := ice.ParseURL(s.URL)
		if err != nil {
			return nil, fmt.Errorf("icetransport: parse url %q: %w", s.URL, err)
		}
		if s.Username != "" {
			u.Username = s.Username
			u.Password = s.Credential
		}
		urls = append(urls, u)
	}

	agent, err := ice.NewAgent(&ice.AgentConfig{
		Urls:          urls,
		LoggerFactory: loggerFactory,
		NetworkTypes:  []ice.NetworkType{ice.NetworkTypeUDP4, ice.NetworkTypeUDP6},
	})
	if err != nil {
		return nil, fmt.Errorf("icetransport: new agent: %w", err)
	}

	t := &Transport{
		log:   loggerFactory.NewLogger("ice"),
		agent: agent,
	}

	if err := agent.OnCandidate(func(c ice.Candidate) {
		t.mu.Lock()
		cb := t.onLocalCandidate
		t.mu.Unlock()
		if cb == nil {
			return
		}
		if c == nil {
			cb("")
			return
		}
		cb(c.Marshal())
	}); err != nil {
		return nil, fmt.Errorf("icetransport: register candidate handler: %w", err)
	}

	return t, nil
}

// OnLocalCandidate registers the callback fired once per gathered local
// candidate, and once more with the empty string once gathering completes
// (spec §4.2's end-of-candidates marker).
func (t *Transport) OnLocalCandidate(f func(candidate string)) {
	t.mu.Lock()
	t.onLocalCandidate = f
	t.mu.Unlock()
}

// Credentials returns this agent's local ufrag/pwd, used to populate the
// a=ice-ufrag/a=ice-pwd SDP lines (spec §4.5).
func (t *Transport) Credentials() (ufrag, pwd string) {
	return t.agent.GetLocalUserCredentials()
}

// GatherCandidates starts asynchronous candidate gathering. Candidates
// arrive via the OnLocalCandidate callback as they are found.
func (t *Transport) GatherCandidates() error {
	return t.agent.GatherCandidates()
}

// AddRemoteCandidate adds one candidate line received from the peer.
func (t *Transport) AddRemoteCandidate(line string) error {
	c, err := ice.UnmarshalCandidate(line)
	if err != nil {
		return fmt.Errorf("icetransport: unmarshal candidate: %w", err)
	}
	return t.agent.AddRemoteCandidate(c)
}

// Connect performs connectivity checks against the peer's ufrag/pwd and
// blocks until a candidate pair is selected (or ctx is done). The returned
// net.Conn carries raw ICE-selected-pair datagrams and is handed directly
// to the DTLS stage.
func (t *Transport) Connect(ctx context.Context, role Role, remoteUfrag, remotePwd string) (*ice.Conn, error) {
	switch role {
	case Controlling:
		return t.agent.Dial(ctx, remoteUfrag, remotePwd)
	case Controlled:
		return t.agent.Accept(ctx, remoteUfrag, remotePwd)
	default:
		return nil, fmt.Errorf("icetransport: unknown role %d", role)
	}
}

// Stop releases the agent and all candidates/sockets it holds.
func (t *Transport) Stop() error {
	return t.agent.Close()
}
