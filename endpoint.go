// Package rtcdc implements a WebRTC data-channel peer endpoint: SDP
// offer/answer exchange, ICE candidate trickle, DTLS handshake, and an SCTP
// association carrying labeled, stream-oriented Data Channels (RFC 8831/
// 8832), without media tracks, renegotiation, or multiple associations.
package rtcdc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/logging"

	"github.com/tokarevvit/rtcdc/internal/dtlstransport"
	"github.com/tokarevvit/rtcdc/internal/icetransport"
	"github.com/tokarevvit/rtcdc/internal/sctptransport"
)

// Endpoint is the top-level orchestrator: it owns the ICE, DTLS and SCTP
// transports, generates and parses SDP, and maintains the Data Channel
// registry (spec §4.1's PeerEndpoint).
//
// Grounded on pion-webrtc's peerconnection.go for the overall
// construction-wires-callbacks-bottom-up shape, narrowed to exactly the
// operations spec §4.1 names; the OPEN/ACK/CLOSE/STRING/BINARY dispatch
// table lives in the onRemote* handlers below.
type Endpoint struct {
	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger

	cert *certificate

	ice  *icetransport.Transport
	dtls *dtlstransport.Transport
	sctp *sctptransport.Transport

	onLocalCandidate func(IceCandidate)
	onNewChannel     func(*DataChannel)

	mu            sync.Mutex
	role          Role
	mid           string
	remoteUfrag   string
	remotePwd     string
	remoteFP      string
	haveRemoteSDP bool
	stopped       bool

	channels map[uint16]*DataChannel
}

// New constructs an Endpoint and starts ICE candidate gathering. Fails if
// any transport cannot be initialized (spec §4.1's new()).
func New(config Configuration, onLocalCandidate func(IceCandidate), onNewChannel func(*DataChannel)) (*Endpoint, error) {
	if onLocalCandidate == nil {
		return nil, ErrNilCandidateCallback
	}

	loggerFactory := logging.NewDefaultLoggerFactory()

	cert, err := generateSelfSignedCertificate()
	if err != nil {
		return nil, &InitFailedError{Subsystem: "dtls", Err: err}
	}

	servers, err := config.iceServerList()
	if err != nil {
		return nil, &InitFailedError{Subsystem: "ice", Err: err}
	}

	ice, err := icetransport.New(servers, loggerFactory)
	if err != nil {
		return nil, &InitFailedError{Subsystem: "ice", Err: err}
	}

	e := &Endpoint{
		loggerFactory:    loggerFactory,
		log:              loggerFactory.NewLogger("rtcdc"),
		cert:             cert,
		ice:              ice,
		dtls:             dtlstransport.New(cert.tlsCert, loggerFactory),
		onLocalCandidate: onLocalCandidate,
		onNewChannel:     onNewChannel,
		role:             RoleClient,
		mid:              sdpMid,
		channels:         make(map[uint16]*DataChannel),
	}

	ice.OnLocalCandidate(func(candidate string) {
		if candidate == "" {
			e.onLocalCandidate(endOfCandidates(e.currentMid()))
			return
		}
		e.onLocalCandidate(IceCandidate{Candidate: candidate, SDPMid: e.currentMid(), SDPMLineIndex: 0})
	})

	if err := ice.GatherCandidates(); err != nil {
		return nil, &InitFailedError{Subsystem: "ice", Err: err}
	}

	return e, nil
}

func (e *Endpoint) currentMid() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mid
}

// GenerateOffer emits an SDP offer (spec §4.1/§4.5). The local side
// generating the offer is the ICE-controlling party (it later Dials).
func (e *Endpoint) GenerateOffer() (string, error) {
	if e.isStopped() {
		return "", &StoppedError{}
	}

	sessionID, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("rtcdc: generate offer: %w", err)
	}

	ufrag, pwd := e.ice.Credentials()
	lines := []string{
		fmt.Sprintf("a=ice-ufrag:%s", ufrag),
		fmt.Sprintf("a=ice-pwd:%s", pwd),
	}

	return buildOfferSDP(sessionID, e.cert.fingerprint, lines), nil
}

// ParseOffer scans the remote offer for a=setup:/a=mid:/a=fingerprint:,
// resolves the local Role per spec §3's rule, records the mid, and hands
// the remote ICE credentials and any carried candidates to the ICE
// transport. The side parsing an offer is ICE-controlled (it later
// Accepts).
func (e *Endpoint) ParseOffer(sdp string) error {
	if e.isStopped() {
		return &StoppedError{}
	}

	parsed, err := parseRemoteSDP(sdp)
	if err != nil {
		return &InvalidSDPError{Err: err}
	}

	e.mu.Lock()
	e.role = resolveRoleFromSetup(parsed.Setup, e.role)
	if parsed.Mid != "" {
		e.mid = parsed.Mid
	}
	e.remoteUfrag = parsed.Ufrag
	e.remotePwd = parsed.Pwd
	e.remoteFP = parsed.Fingerprint
	e.haveRemoteSDP = true
	role := e.role
	e.mu.Unlock()

	for _, c := range parsed.Candidates {
		if err := e.ice.AddRemoteCandidate(c); err != nil {
			return &InvalidCandidateError{Err: err}
		}
	}

	go e.connect(icetransport.Controlled, role)
	return nil
}

// GenerateAnswer emits an SDP answer (spec §4.1/§4.5). ParseOffer must have
// been called first so the mid and resolved role are available.
func (e *Endpoint) GenerateAnswer() (string, error) {
	if e.isStopped() {
		return "", &StoppedError{}
	}

	e.mu.Lock()
	if !e.haveRemoteSDP {
		e.mu.Unlock()
		return "", &InvalidSDPError{Err: fmt.Errorf("no offer parsed yet")}
	}
	mid, role := e.mid, e.role
	e.mu.Unlock()

	sessionID, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("rtcdc: generate answer: %w", err)
	}

	ufrag, pwd := e.ice.Credentials()
	lines := []string{
		fmt.Sprintf("a=ice-ufrag:%s", ufrag),
		fmt.Sprintf("a=ice-pwd:%s", pwd),
	}

	return buildAnswerSDP(sessionID, mid, answerSetupFor(role), e.cert.fingerprint, lines), nil
}

// ParseAnswer resolves the local Role from the remote answer's a=setup:
// line, applies any carried candidates, and begins the ICE connect as the
// controlling (offering) side.
func (e *Endpoint) ParseAnswer(sdp string) error {
	if e.isStopped() {
		return &StoppedError{}
	}

	parsed, err := parseRemoteSDP(sdp)
	if err != nil {
		return &InvalidSDPError{Err: err}
	}

	e.mu.Lock()
	e.role = resolveRoleFromSetup(parsed.Setup, e.role)
	e.remoteUfrag = parsed.Ufrag
	e.remotePwd = parsed.Pwd
	e.remoteFP = parsed.Fingerprint
	e.haveRemoteSDP = true
	role := e.role
	e.mu.Unlock()

	for _, c := range parsed.Candidates {
		if err := e.ice.AddRemoteCandidate(c); err != nil {
			return &InvalidCandidateError{Err: err}
		}
	}

	go e.connect(icetransport.Controlling, role)
	return nil
}

// AddRemoteCandidate delivers one trickled remote candidate line. A leading
// "a=" is stripped if present, matching the boundary contract in spec §3
// (IceCandidate.Candidate never carries it).
func (e *Endpoint) AddRemoteCandidate(line string) error {
	if e.isStopped() {
		return &StoppedError{}
	}
	if len(line) >= 2 && line[:2] == "a=" {
		line = line[2:]
	}
	if err := e.ice.AddRemoteCandidate(line); err != nil {
		return &InvalidCandidateError{Err: err}
	}
	return nil
}

// connect drives ICE connectivity, the DTLS handshake and SCTP association
// bring-up in sequence, exactly the control flow spec §2 describes: ICE
// ready -> DTLS handshake -> SCTP connect -> association up.
func (e *Endpoint) connect(iceRole icetransport.Role, dtlsRole Role) {
	e.mu.Lock()
	remoteUfrag, remotePwd, remoteFP := e.remoteUfrag, e.remotePwd, e.remoteFP
	e.mu.Unlock()

	iceConn, err := e.ice.Connect(context.Background(), iceRole, remoteUfrag, remotePwd)
	if err != nil {
		e.log.Errorf("ice connect failed: %v", err)
		return
	}

	var role dtlstransport.Role
	if dtlsRole == RoleClient {
		role = dtlstransport.RoleClient
	} else {
		role = dtlstransport.RoleServer
	}

	dtlsConn, err := e.dtls.Handshake(iceConn, role, remoteFP)
	if err != nil {
		e.log.Errorf("dtls handshake failed: %v", err)
		return
	}

	var sctpT *sctptransport.Transport
	if dtlsRole == RoleClient {
		sctpT, err = sctptransport.Client(dtlsConn, e.loggerFactory)
	} else {
		sctpT, err = sctptransport.Server(dtlsConn, e.loggerFactory)
	}
	if err != nil {
		e.log.Errorf("sctp connect failed: %v", err)
		return
	}

	sctpT.OnOpen(e.onRemoteOpen)
	sctpT.OnAck(e.onRemoteAck)
	sctpT.OnString(e.onRemoteString)
	sctpT.OnBinary(e.onRemoteBinary)
	sctpT.OnClose(e.onRemoteClose)

	e.mu.Lock()
	e.sctp = sctpT
	e.mu.Unlock()

	go sctpT.AcceptLoop()
}

// OpenChannel allocates a stream id per the Role-parity rule (spec §3),
// registers a Connecting placeholder, and asynchronously sends the DCEP
// OPEN control message. It may only succeed once the SCTP association is
// up.
func (e *Endpoint) OpenChannel(label, protocol string, kind ChannelKind, reliability uint32) (*DataChannel, error) {
	if e.isStopped() {
		return nil, &StoppedError{}
	}

	e.mu.Lock()
	sctpT := e.sctp
	if sctpT == nil {
		e.mu.Unlock()
		return nil, ErrSCTPNotConnected
	}
	sid := e.allocateSIDLocked()
	dc := newDataChannel(e, sid, kind, label, protocol, reliability, DataChannelStateConnecting)
	e.channels[sid] = dc
	e.mu.Unlock()

	if err := sctpT.OpenStream(sid, byte(kind), 0, reliability, label, protocol); err != nil {
		e.mu.Lock()
		delete(e.channels, sid)
		e.mu.Unlock()
		return nil, &SendFailedError{Err: err}
	}

	return dc, nil
}

// allocateSIDLocked scans upward from the role's base sid (0 for Client,
// 1 for Server) and returns the first unused slot of the correct parity
// (spec §3's ChannelRegistry allocation rule). Caller must hold e.mu.
func (e *Endpoint) allocateSIDLocked() uint16 {
	start := uint16(0)
	if e.role == RoleServer {
		start = 1
	}
	for sid := start; ; sid += 2 {
		if _, taken := e.channels[sid]; !taken {
			return sid
		}
	}
}

// onSCTPMessage-equivalent handlers: these implement spec §4.1's inbound
// dispatch table, split per PPID/control-byte the way sctptransport already
// demultiplexed it.

func (e *Endpoint) onRemoteOpen(m sctptransport.OpenMessage) {
	e.mu.Lock()
	dc := newDataChannel(e, m.SID, ChannelKind(m.ChanType), m.Label, m.Protocol, m.ReliabilityParam, DataChannelStateOpen)
	e.channels[m.SID] = dc
	e.mu.Unlock()

	if e.onNewChannel != nil {
		e.onNewChannel(dc)
	}
	dc.fireOpen()
}

func (e *Endpoint) onRemoteAck(sid uint16) {
	dc := e.lookupChannel(sid)
	if dc == nil {
		return
	}
	wasNew := dc.State() != DataChannelStateOpen
	dc.fireOpen()
	if wasNew && e.onNewChannel != nil {
		e.onNewChannel(dc)
	}
}

func (e *Endpoint) onRemoteString(sid uint16, s string) {
	if dc := e.lookupChannel(sid); dc != nil {
		dc.fireString(s)
	}
}

func (e *Endpoint) onRemoteBinary(sid uint16, b []byte) {
	if dc := e.lookupChannel(sid); dc != nil {
		dc.fireBinary(b)
	}
}

func (e *Endpoint) onRemoteClose(sid uint16) {
	e.mu.Lock()
	dc := e.channels[sid]
	delete(e.channels, sid)
	e.mu.Unlock()
	if dc != nil {
		dc.fireClosed()
	}
}

func (e *Endpoint) lookupChannel(sid uint16) *DataChannel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels[sid]
}

// sendText/sendBinary/closeChannel implement the channelSender interface
// DataChannel calls back through.

func (e *Endpoint) sendText(sid uint16, s string) error {
	sctpT, err := e.requireSCTP()
	if err != nil {
		return err
	}
	if err := sctpT.SendText(sid, s); err != nil {
		if errors.Is(err, sctptransport.ErrCancelled) {
			return &SendCancelledError{}
		}
		return &SendFailedError{Err: err}
	}
	return nil
}

func (e *Endpoint) sendBinary(sid uint16, b []byte) error {
	sctpT, err := e.requireSCTP()
	if err != nil {
		return err
	}
	if err := sctpT.SendBinary(sid, b); err != nil {
		if errors.Is(err, sctptransport.ErrCancelled) {
			return &SendCancelledError{}
		}
		return &SendFailedError{Err: err}
	}
	return nil
}

func (e *Endpoint) closeChannel(sid uint16) error {
	sctpT, err := e.requireSCTP()
	if err != nil {
		return err
	}
	if err := sctpT.ResetStream(sid); err != nil {
		return &StreamResetDeniedError{SID: sid}
	}
	return nil
}

func (e *Endpoint) requireSCTP() (*sctptransport.Transport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, &StoppedError{}
	}
	if e.sctp == nil {
		return nil, ErrSCTPNotConnected
	}
	return e.sctp, nil
}

func (e *Endpoint) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Stop idempotently tears down all three transports. After Stop returns,
// every public operation fails with StoppedError (spec §5).
func (e *Endpoint) Stop() error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	sctpT := e.sctp
	e.mu.Unlock()

	if sctpT != nil {
		sctpT.Cancel()
		_ = sctpT.Close()
	}
	_ = e.ice.Stop()
	return nil
}
