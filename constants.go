package rtcdc

// sctpPort is the SCTP port advertised on both the m=application and
// a=sctpmap SDP lines. It is never negotiated -- both sides hardcode it,
// mirroring librtcdcpp, which never exchanges a different value either.
const sctpPort = 5000

// sessionIDLength is the length, in decimal digits, of the session id
// generated for the SDP o= line.
const sessionIDLength = 16

// mediaSectionApplication labels the single m=application line this
// endpoint ever generates. No media (audio/video) sections exist.
const mediaSectionApplication = "application"
