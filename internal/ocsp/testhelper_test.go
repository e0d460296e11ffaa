package ocsp

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	xocsp "golang.org/x/crypto/ocsp"
)

// generateTestCA creates a self-signed ECDSA P-256 CA certificate and key.
func generateTestCA(t *testing.T) (*x509.Certificate, crypto.Signer) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate ECDSA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: randomSerial(t),
		Subject: pkix.Name{
			CommonName:   "Test CA",
			Organization: []string{"Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("Failed to create CA certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("Failed to parse CA certificate: %v", err)
	}

	return cert, priv
}

// issueTestCertificate issues an end-entity certificate from the CA.
func issueTestCertificate(t *testing.T, caCert *x509.Certificate, caKey crypto.Signer) *x509.Certificate {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate ECDSA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: randomSerial(t),
		Subject: pkix.Name{
			CommonName:   "Test End Entity",
			Organization: []string{"Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, caCert, &priv.PublicKey, caKey)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}

	return cert
}

func randomSerial(t *testing.T) *big.Int {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("Failed to generate serial number: %v", err)
	}
	return serial
}

// testPKI holds a CA and one issued certificate.
type testPKI struct {
	CACert *x509.Certificate
	CAKey  crypto.Signer
	Cert   *x509.Certificate
}

func newTestPKI(t *testing.T) *testPKI {
	t.Helper()
	caCert, caKey := generateTestCA(t)
	return &testPKI{
		CACert: caCert,
		CAKey:  caKey,
		Cert:   issueTestCertificate(t, caCert, caKey),
	}
}

// newTestRequest builds a request for the PKI's certificate without extensions.
func newTestRequest(t *testing.T, pki *testPKI) *OCSPRequest {
	t.Helper()
	req, err := CreateRequest(pki.CACert, []*x509.Certificate{pki.Cert}, crypto.SHA256)
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	return req
}

// newTestBasicResponse signs a "good" response with golang.org/x/crypto/ocsp
// and parses it back into a BasicOCSPResponse.
func newTestBasicResponse(t *testing.T, pki *testPKI, exts ...pkix.Extension) *BasicOCSPResponse {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	der, err := xocsp.CreateResponse(pki.CACert, pki.CACert, xocsp.Response{
		Status:          xocsp.Good,
		SerialNumber:    pki.Cert.SerialNumber,
		ThisUpdate:      now,
		NextUpdate:      now.Add(time.Hour),
		ExtraExtensions: exts,
	}, pki.CAKey)
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}

	basic, err := ParseBasicFromResponse(der)
	if err != nil {
		t.Fatalf("ParseBasicFromResponse failed: %v", err)
	}
	return basic
}

// errorResponse returns an unsigned OCSPResponse carrying only status.
func errorResponse(t *testing.T, status ResponseStatus) []byte {
	t.Helper()
	der, err := asn1.Marshal(OCSPResponse{Status: asn1.Enumerated(status)})
	if err != nil {
		t.Fatalf("failed to marshal error response: %v", err)
	}
	return der
}

// testExt returns a raw extension with a private OID arc.
func testExt(arc int, critical bool, value ...byte) pkix.Extension {
	return pkix.Extension{
		Id:       asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 99999, arc},
		Critical: critical,
		Value:    value,
	}
}

// testIssuer returns C=FR, O=Test Org, CN=Test CA with explicit string types.
func testIssuer() pkix.RDNSequence {
	atv := func(oid asn1.ObjectIdentifier, tag int, value string) pkix.RelativeDistinguishedNameSET {
		return pkix.RelativeDistinguishedNameSET{{
			Type:  oid,
			Value: asn1.RawValue{Class: asn1.ClassUniversal, Tag: tag, Bytes: []byte(value)},
		}}
	}
	return pkix.RDNSequence{
		atv(asn1.ObjectIdentifier{2, 5, 4, 6}, asn1.TagPrintableString, "FR"),
		atv(asn1.ObjectIdentifier{2, 5, 4, 10}, asn1.TagUTF8String, "Test Org"),
		atv(asn1.ObjectIdentifier{2, 5, 4, 3}, asn1.TagUTF8String, "Test CA"),
	}
}

// failingReader is a random source that always fails.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

// withRandReader replaces the nonce random source for the duration of the test.
func withRandReader(t *testing.T, r io.Reader) {
	t.Helper()
	prev := randReader
	randReader = r
	t.Cleanup(func() { randReader = prev })
}
