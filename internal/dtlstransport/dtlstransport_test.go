package dtlstransport

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
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T) (tls.Certificate, string) {
	t.Helper()

	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)

	tpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "dtlstransport-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &sk.PublicKey, sk)
	require.NoError(t, err)

	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: sk}, strings.Join(parts, ":")
}

func TestHandshakeClientServerOverPipe(t *testing.T) {
	clientCert, clientFP := selfSignedCert(t)
	serverCert, serverFP := selfSignedCert(t)

	clientLower, serverLower := net.Pipe()
	lf := logging.NewDefaultLoggerFactory()

	clientT := New(clientCert, lf)
	serverT := New(serverCert, lf)

	type result struct {
		conn net.Conn
		err  error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		c, err := clientT.Handshake(clientLower, RoleClient, serverFP)
		clientCh <- result{c, err}
	}()
	go func() {
		c, err := serverT.Handshake(serverLower, RoleServer, clientFP)
		serverCh <- result{c, err}
	}()

	var clientRes, serverRes result
	select {
	case clientRes = <-clientCh:
	case <-time.After(10 * time.Second):
		t.Fatal("client handshake timed out")
	}
	select {
	case serverRes = <-serverCh:
	case <-time.After(10 * time.Second):
		t.Fatal("server handshake timed out")
	}

	require.NoError(t, clientRes.err)
	require.NoError(t, serverRes.err)
	defer clientRes.conn.Close()
	defer serverRes.conn.Close()
}

func TestHandshakeRejectsFingerprintMismatch(t *testing.T) {
	clientCert, _ := selfSignedCert(t)
	serverCert, serverFP := selfSignedCert(t)
	_ = serverFP

	clientLower, serverLower := net.Pipe()
	lf := logging.NewDefaultLoggerFactory()

	clientT := New(clientCert, lf)
	serverT := New(serverCert, lf)

	clientErrCh := make(chan error, 1)
	go func() {
		_, err := clientT.Handshake(clientLower, RoleClient, "00:11:22:33")
		clientErrCh <- err
	}()
	go func() {
		_, _ = serverT.Handshake(serverLower, RoleServer, "")
	}()

	select {
	case err := <-clientErrCh:
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("client handshake timed out")
	}
}

func TestRoleConstantsAreDistinct(t *testing.T) {
	assert.NotEqual(t, RoleClient, RoleServer)
}
