package transport

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names expected under a Docker certificate directory.
const (
	CAFile   = "ca.pem"
	CertFile = "cert.pem"
	KeyFile  = "key.pem"
)

// LoadTLSConfig reads client material from dir and returns a TLS client
// configuration for the encrypted TCP variant.
//
// cert.pem holds the client certificate chain. key.pem must hold exactly one
// private key, PKCS#1 RSA or PKCS#8; anything else fails with ErrKeyDecode.
// ca.pem is read only when verify is true. When verify is false no trust
// roots are installed and the daemon certificate is not validated, which is
// the Docker tooling convention but leaves the connection open to
// interception.
func LoadTLSConfig(dir string, verify bool) (*tls.Config, error) {
	certPEM, err := os.ReadFile(filepath.Join(dir, CertFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTLSMaterial, CertFile, err)
	}
	keyPEM, err := os.ReadFile(filepath.Join(dir, KeyFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTLSMaterial, KeyFile, err)
	}

	keyBlock, err := singlePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}
	cert, err := tls.X509KeyPair(certPEM, pem.EncodeToMemory(keyBlock))
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrTLSMaterial, CertFile, KeyFile, err)
	}

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	if !verify {
		cfg.InsecureSkipVerify = true
		return cfg, nil
	}

	caPEM, err := os.ReadFile(filepath.Join(dir, CAFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTLSMaterial, CAFile, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("%w: %s contains no certificates", ErrTLSMaterial, CAFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// singlePrivateKey returns the only private key block in data. Non-key
// blocks (EC PARAMETERS, certificates) are skipped.
func singlePrivateKey(data []byte) (*pem.Block, error) {
	var (
		found *pem.Block
		count int
	)
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		data = rest

		switch block.Type {
		case "RSA PRIVATE KEY":
			if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrKeyDecode, KeyFile, err)
			}
		case "PRIVATE KEY":
			if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrKeyDecode, KeyFile, err)
			}
		default:
			if strings.HasSuffix(block.Type, "PRIVATE KEY") {
				return nil, fmt.Errorf("%w: %s: unsupported key type %q", ErrKeyDecode, KeyFile, block.Type)
			}
			continue
		}
		found = block
		count++
	}

	switch {
	case count == 0:
		return nil, fmt.Errorf("%w: %s: no private key found", ErrKeyDecode, KeyFile)
	case count > 1:
		return nil, fmt.Errorf("%w: %s: found %d private keys, expected exactly one", ErrKeyDecode, KeyFile, count)
	}
	return found, nil
}
