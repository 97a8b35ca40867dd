package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"time"
)

var maxSerialNumber = new(big.Int).Lsh(big.NewInt(1), 128)

// generateCA generates a CA key pair and self-signed certificate from
// rng, returning PEM-encoded key and certificate. Callers that want
// deterministic output pass a seededReader; EphemeralConfig threads the
// same rng into generateLeaf afterward so one seed determines both
// certificates.
func generateCA(rng io.Reader) (keyPEM, certPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rng)
	if err != nil {
		return nil, nil, err
	}

	cn, err := randomString(8, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("generating random common name: %s", err)
	}
	org, err := randomString(8, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("generating random organization: %s", err)
	}
	serial, err := rand.Int(rng, maxSerialNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("generating serial number: %s", err)
	}

	tmpl := x509.Certificate{
		NotBefore:    time.Date(1970, 0, 0, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2063, 4, 5, 11, 0, 0, 0, time.UTC),
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   cn,
			Organization: []string{org},
		},
		BasicConstraintsValid: true,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rng, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating CA certificate: %s", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling CA private key: %s", err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return keyPEM, certPEM, nil
}

// generateLeaf creates a server certificate signed by the CA key pair
// produced by generateCA, drawing its own key, subject and serial
// number from rng — the same rng generateCA consumed, continued from
// where it left off, so one seed determines the whole chain.
func generateLeaf(rng io.Reader, caCertPEM, caKeyPEM []byte) (tls.Certificate, error) {
	var out tls.Certificate

	caKeyBlock, _ := pem.Decode(caKeyPEM)
	if caKeyBlock == nil {
		return out, fmt.Errorf("decoding PEM block from CA key")
	}
	caKey, err := x509.ParseECPrivateKey(caKeyBlock.Bytes)
	if err != nil {
		return out, fmt.Errorf("x509.ParseECPrivateKey: %s", err)
	}

	caCertBlock, _ := pem.Decode(caCertPEM)
	if caCertBlock == nil {
		return out, fmt.Errorf("decoding PEM block from CA certificate")
	}
	caCert, err := x509.ParseCertificate(caCertBlock.Bytes)
	if err != nil {
		return out, fmt.Errorf("x509.ParseCertificate: %s", err)
	}

	key, err := ecdsa.GenerateKey(caCert.PublicKey.(*ecdsa.PublicKey).Curve, rng)
	if err != nil {
		return out, fmt.Errorf("generating leaf key pair: %s", err)
	}

	commonName, err := randomString(8, rng)
	if err != nil {
		return out, fmt.Errorf("generating random common name: %s", err)
	}
	serial, err := rand.Int(rng, maxSerialNumber)
	if err != nil {
		return out, fmt.Errorf("generating serial number: %s", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Date(1970, 0, 0, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2063, 4, 5, 11, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rng, &tmpl, caCert, &key.PublicKey, caKey)
	if err != nil {
		return out, fmt.Errorf("creating leaf certificate: %s", err)
	}

	out.Certificate = [][]byte{der}
	out.PrivateKey = key
	return out, nil
}

func randomString(length int, rng io.Reader) (string, error) {
	b := make([]byte, length)
	if _, err := io.ReadFull(rng, b); err != nil {
		return "", err
	}
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]byte, length)
	for i, c := range b {
		out[i] = alphabet[int(c)%len(alphabet)]
	}
	return string(out), nil
}

// seededReader returns a deterministic io.Reader derived from seed, so
// the same seed always produces the same certificate material.
func seededReader(seed string) io.Reader {
	return &seededRand{next: []byte(seed)}
}

type seededRand struct {
	next []byte
}

func (d *seededRand) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		sum := sha512.Sum512(d.next)
		d.next = sum[:sha512.Size/2]
		n += copy(b[n:], sum[sha512.Size/2:])
	}
	return n, nil
}
