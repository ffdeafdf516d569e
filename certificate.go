package rtcdc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// certificate wraps a self-signed ECDSA certificate generated once per
// Endpoint and used for the lifetime of its DTLS transport.
//
// Grounded on pion/webrtc's certificate.go (GenerateCertificate /
// GetFingerprints), narrowed to the one code path this endpoint needs: a
// single self-signed ECDSA P-256 certificate, no pinning (a non-goal) and
// no certificate exchange API.
type certificate struct {
	tlsCert    tls.Certificate
	fingerprint string
}

func generateSelfSignedCertificate() (*certificate, error) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}

	tpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "rtcdc"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &sk.PublicKey, sk)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	return &certificate{
		tlsCert: tls.Certificate{
			Certificate: [][]byte{der},
			PrivateKey:  sk,
		},
		fingerprint: fingerprintOf(der),
	}, nil
}

// fingerprintOf computes the SHA-256 fingerprint of a certificate's DER
// encoding as colon-separated uppercase hex pairs, per spec §3.
func fingerprintOf(der []byte) string {
	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
