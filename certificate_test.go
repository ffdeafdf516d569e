package rtcdc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedCertificateFingerprintFormat(t *testing.T) {
	cert, err := generateSelfSignedCertificate()
	require.NoError(t, err)
	require.NotNil(t, cert)

	parts := strings.Split(cert.fingerprint, ":")
	assert.Len(t, parts, 32, "sha-256 fingerprint should be 32 colon-separated octets")
	for _, p := range parts {
		assert.Len(t, p, 2)
		assert.Equal(t, strings.ToUpper(p), p)
	}

	require.NotEmpty(t, cert.tlsCert.Certificate)
}

func TestGenerateSelfSignedCertificateIsFreshEachTime(t *testing.T) {
	a, err := generateSelfSignedCertificate()
	require.NoError(t, err)
	b, err := generateSelfSignedCertificate()
	require.NoError(t, err)

	assert.NotEqual(t, a.fingerprint, b.fingerprint)
}
