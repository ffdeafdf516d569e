package rtcdc

import (
	"fmt"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

const sdpMid = "0"

// buildOfferSDP renders the exact offer line set described by spec §4.5.
// ICE lines (ufrag, pwd and any candidate lines) are appended in the given
// order; any trailing CR/LF on a line is trimmed and a single CRLF added.
func buildOfferSDP(sessionID, fingerprint string, iceLines []string) string {
	var b strings.Builder
	writeCRLF(&b, "v=0")
	writeCRLF(&b, fmt.Sprintf("o=- %s 0 IN IP4 0.0.0.0", sessionID))
	writeCRLF(&b, "s=-")
	writeCRLF(&b, "t=0 0")
	writeCRLF(&b, "a=ice-options:trickle")
	writeCRLF(&b, fmt.Sprintf("m=application 54609 DTLS/SCTP %d", sctpPort))
	writeCRLF(&b, "a=msid-semantic: WMS")
	writeCRLF(&b, "c=IN IP4 0.0.0.0")
	writeCRLF(&b, "a=sendrecv")
	writeCRLF(&b, "a=setup:actpass")
	writeCRLF(&b, "a=dtls-id:1")
	for _, line := range iceLines {
		b.WriteString(strings.TrimRight(line, "\r\n"))
		b.WriteString("\r\n")
	}
	writeCRLF(&b, fmt.Sprintf("a=fingerprint:sha-256 %s", fingerprint))
	writeCRLF(&b, fmt.Sprintf("a=sctpmap:%d webrtc-datachannel 262144", sctpPort))
	return b.String()
}

// buildAnswerSDP renders the exact answer line set described by spec §4.5.
// setup is the resolved local setup attribute ("active" or "passive"), the
// complement of whatever role the offer's setup line implied.
func buildAnswerSDP(sessionID, mid, setup, fingerprint string, iceLines []string) string {
	var b strings.Builder
	writeCRLF(&b, "v=0")
	writeCRLF(&b, fmt.Sprintf("o=- %s 2 IN IP4 0.0.0.0", sessionID))
	writeCRLF(&b, "s=-")
	writeCRLF(&b, "t=0 0")
	writeCRLF(&b, "a=ice-options:trickle")
	writeCRLF(&b, fmt.Sprintf("m=application 9 DTLS/SCTP %d", sctpPort))
	writeCRLF(&b, "a=msid-semantic: WMS")
	writeCRLF(&b, "c=IN IP4 0.0.0.0")
	writeCRLF(&b, "a=sendrecv")
	writeCRLF(&b, fmt.Sprintf("a=setup:%s", setup))
	writeCRLF(&b, "a=dtls-id:1")
	writeCRLF(&b, fmt.Sprintf("a=mid:%s", mid))
	for _, line := range iceLines {
		b.WriteString(strings.TrimRight(line, "\r\n"))
		b.WriteString("\r\n")
	}
	writeCRLF(&b, fmt.Sprintf("a=fingerprint:sha-256 %s", fingerprint))
	writeCRLF(&b, fmt.Sprintf("a=sctpmap:%d webrtc-datachannel 1024", sctpPort))
	return b.String()
}

func writeCRLF(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}

// parsedSDP is what parseRemoteSDP extracts: enough to resolve the local
// DTLS role, record the remote mid, verify the peer's DTLS certificate, and
// seed the ICE agent with the remote's credentials and any candidates
// carried in the initial offer/answer (spec §4.1's parse_offer, §4.2's
// parse_remote_sdp).
type parsedSDP struct {
	Setup       string
	Mid         string
	Fingerprint string
	Ufrag       string
	Pwd         string
	Candidates  []string
}

// parseRemoteSDP normalizes CRLF to LF (spec §4.2 -- some ICE agents treat
// a bare \r as part of ufrag/pwd) and structurally parses the result with
// pion/sdp/v3, grounded on pion-webrtc's extractICEDetails: ice-ufrag/
// ice-pwd are read off the session and then off each application media
// section (a media-level value wins), and setup/mid/fingerprint/candidate
// attributes off the application media sections only. Non-application
// media sections are skipped.
func parseRemoteSDP(sdp string) (parsedSDP, error) {
	normalized := strings.ReplaceAll(sdp, "\r\n", "\n")

	var desc psdp.SessionDescription
	if err := desc.Unmarshal([]byte(normalized)); err != nil {
		return parsedSDP{}, fmt.Errorf("unmarshal: %w", err)
	}

	var out parsedSDP
	if ufrag, ok := desc.Attribute("ice-ufrag"); ok {
		out.Ufrag = ufrag
	}
	if pwd, ok := desc.Attribute("ice-pwd"); ok {
		out.Pwd = pwd
	}

	for _, m := range desc.MediaDescriptions {
		if m.MediaName.Media != mediaSectionApplication {
			continue
		}
		if ufrag, ok := m.Attribute("ice-ufrag"); ok {
			out.Ufrag = ufrag
		}
		if pwd, ok := m.Attribute("ice-pwd"); ok {
			out.Pwd = pwd
		}
		if setup, ok := m.Attribute("setup"); ok {
			out.Setup = setup
		}
		if mid, ok := m.Attribute("mid"); ok {
			out.Mid = mid
		}
		if fp, ok := m.Attribute("fingerprint"); ok {
			parts := strings.SplitN(fp, " ", 2)
			if len(parts) == 2 {
				out.Fingerprint = parts[1]
			}
		}
		for _, a := range m.Attributes {
			if a.IsICECandidate() {
				out.Candidates = append(out.Candidates, a.Value)
			}
		}
	}

	return out, nil
}

// resolveRoleFromSetup implements spec §3's Role rule: remote active means
// the local side must be the DTLS server, remote passive means local is
// client, remote actpass leaves the default (Client) untouched.
func resolveRoleFromSetup(remoteSetup string, current Role) Role {
	switch remoteSetup {
	case "active":
		return RoleServer
	case "passive":
		return RoleClient
	default:
		return current
	}
}

// answerSetupFor returns the complement of the local role, i.e. the
// a=setup: value the answer should advertise (spec §4.1's generate_answer).
func answerSetupFor(role Role) string {
	if role == RoleServer {
		return "passive"
	}
	return "active"
}
