package rtcdc

// IceCandidate is delivered to the application's onLocalCandidate callback
// as ICE gathers local candidates, and is accepted back from the
// application (or parsed from trickled SDP) as a remote candidate.
//
// Candidate is the body of the SDP "a=candidate:" line -- no "a=" prefix --
// per the boundary contract in spec §3.
type IceCandidate struct {
	Candidate     string
	SDPMid        string
	SDPMLineIndex uint16
}

// endOfCandidates is the terminal empty-candidate sentinel that marks ICE
// gathering completion (spec §4.2/§6).
func endOfCandidates(mid string) IceCandidate {
	return IceCandidate{Candidate: "", SDPMid: mid, SDPMLineIndex: 0}
}
