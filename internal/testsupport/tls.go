package testsupport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// TLSMaterial is a throwaway CA with a server and a client certificate
// signed by it. The client files are written as ca.pem, cert.pem and
// key.pem in Dir.
type TLSMaterial struct {
	Dir    string
	CAPool *x509.CertPool
	Server tls.Certificate
	CAPEM  []byte

	caCert *x509.Certificate
	caKey  *rsa.PrivateKey
}

// NewTLSMaterial generates the material and writes the client files into a
// fresh temp directory. The server certificate is valid for 127.0.0.1 and
// localhost.
func NewTLSMaterial(t testing.TB) *TLSMaterial {
	t.Helper()

	caKey := mustRSAKey(t)
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "dockhand test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("create ca certificate: %v", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("parse ca certificate: %v", err)
	}

	m := &TLSMaterial{
		Dir:    t.TempDir(),
		CAPool: x509.NewCertPool(),
		CAPEM:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}),
		caCert: caCert,
		caKey:  caKey,
	}
	m.CAPool.AddCert(caCert)

	serverKey := mustRSAKey(t)
	serverDER := m.sign(t, 2, &serverKey.PublicKey, x509.ExtKeyUsageServerAuth)
	m.Server = tls.Certificate{Certificate: [][]byte{serverDER}, PrivateKey: serverKey}

	clientKey := mustRSAKey(t)
	clientDER := m.sign(t, 3, &clientKey.PublicKey, x509.ExtKeyUsageClientAuth)
	WriteFile(t, filepath.Join(m.Dir, "ca.pem"), m.CAPEM)
	WriteFile(t, filepath.Join(m.Dir, "cert.pem"), pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: clientDER}))
	WriteFile(t, filepath.Join(m.Dir, "key.pem"), pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(clientKey),
	}))
	return m
}

// ServerTLSConfig requires client certificates signed by the test CA.
func (m *TLSMaterial) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{m.Server},
		ClientCAs:    m.CAPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

// WritePKCS8Key replaces key.pem with the client key re-encoded as PKCS#8.
func (m *TLSMaterial) WritePKCS8Key(t testing.TB) {
	t.Helper()
	key := m.clientKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8 key: %v", err)
	}
	WriteFile(t, filepath.Join(m.Dir, "key.pem"), pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// WriteECKey replaces key.pem with a SEC1 "EC PRIVATE KEY" block.
func (m *TLSMaterial) WriteECKey(t testing.TB) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal ec key: %v", err)
	}
	WriteFile(t, filepath.Join(m.Dir, "key.pem"), pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func (m *TLSMaterial) clientKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	pair, err := tls.LoadX509KeyPair(filepath.Join(m.Dir, "cert.pem"), filepath.Join(m.Dir, "key.pem"))
	if err != nil {
		t.Fatalf("load client key pair: %v", err)
	}
	key, ok := pair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		t.Fatalf("client key is %T, want *rsa.PrivateKey", pair.PrivateKey)
	}
	return key
}

func (m *TLSMaterial) sign(t testing.TB, serial int64, pub *rsa.PublicKey, usage x509.ExtKeyUsage) []byte {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{usage},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, m.caCert, pub, m.caKey)
	if err != nil {
		t.Fatalf("sign certificate: %v", err)
	}
	return der
}

func mustRSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}
