package main

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	xocsp "golang.org/x/crypto/ocsp"

	"github.com/remiblancher/ocspext/internal/ocsp"
)

// executeCommand executes a Cobra command with the given args and returns output.
// Flags of every command are reset to their defaults first.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	resetFlags(root)

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string
}

// newTestContext creates a new test context with a temp directory.
func newTestContext(t *testing.T) *testContext {
	t.Helper()
	t.Setenv("OCSPEXT_AUDIT_LOG", "")
	return &testContext{t: t, tempDir: t.TempDir()}
}

// path returns a path within the temp directory.
func (tc *testContext) path(name string) string {
	return filepath.Join(tc.tempDir, name)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name string, content []byte) string {
	tc.t.Helper()
	path := tc.path(name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		tc.t.Fatalf("Failed to write file %s: %v", name, err)
	}
	return path
}

// readFile reads a file from the temp directory.
func (tc *testContext) readFile(path string) []byte {
	tc.t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		tc.t.Fatalf("Failed to read %s: %v", path, err)
	}
	return data
}

// =============================================================================
// PKI Helpers
// =============================================================================

// testPKI holds a CA, one issued certificate and their PEM files.
type testPKI struct {
	CACert   *x509.Certificate
	CAKey    crypto.Signer
	Cert     *x509.Certificate
	CAPath   string
	CertPath string
}

func newTestPKI(tc *testContext) *testPKI {
	tc.t.Helper()
	caKey := generateKey(tc.t)
	caCert := createCertificate(tc.t, &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA", Organization: []string{"Test Org"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil, caKey, caKey)

	leafKey := generateKey(tc.t)
	leaf := createCertificate(tc.t, &x509.Certificate{
		SerialNumber: big.NewInt(0x1234),
		Subject:      pkix.Name{CommonName: "server.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}, caCert, leafKey, caKey)

	return &testPKI{
		CACert:   caCert,
		CAKey:    caKey,
		Cert:     leaf,
		CAPath:   tc.writeFile("ca.pem", pemCert(caCert)),
		CertPath: tc.writeFile("server.pem", pemCert(leaf)),
	}
}

func generateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate ECDSA key: %v", err)
	}
	return priv
}

func createCertificate(t *testing.T, template, parent *x509.Certificate, key, signer *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()
	if parent == nil {
		parent = template
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return cert
}

func pemCert(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// writeRequest writes a DER request for the PKI certificate carrying exts.
func writeRequest(tc *testContext, pki *testPKI, name string, exts ...pkix.Extension) string {
	tc.t.Helper()
	req, err := ocsp.CreateRequest(pki.CACert, []*x509.Certificate{pki.Cert}, crypto.SHA1)
	if err != nil {
		tc.t.Fatalf("CreateRequest failed: %v", err)
	}
	req.TBSRequest.RequestExtensions = exts
	der, err := req.Marshal()
	if err != nil {
		tc.t.Fatalf("Marshal failed: %v", err)
	}
	return tc.writeFile(name, der)
}

// writeResponse writes a "good" response signed with golang.org/x/crypto/ocsp.
// exts land in the single response extensions.
func writeResponse(tc *testContext, pki *testPKI, name string, exts ...pkix.Extension) string {
	tc.t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	der, err := xocsp.CreateResponse(pki.CACert, pki.CACert, xocsp.Response{
		Status:          xocsp.Good,
		SerialNumber:    pki.Cert.SerialNumber,
		ThisUpdate:      now,
		NextUpdate:      now.Add(time.Hour),
		ExtraExtensions: exts,
	}, pki.CAKey)
	if err != nil {
		tc.t.Fatalf("CreateResponse failed: %v", err)
	}
	return tc.writeFile(name, der)
}

// nonceExt returns a nonce extension holding val.
func nonceExt(t *testing.T, val []byte) pkix.Extension {
	t.Helper()
	der, err := asn1.Marshal(val)
	if err != nil {
		t.Fatal(err)
	}
	return pkix.Extension{Id: ocsp.OIDOcspNonce, Value: der}
}

func readTestRequest(tc *testContext, path string) *ocsp.OCSPRequest {
	tc.t.Helper()
	req, err := ocsp.ParseRequest(tc.readFile(path))
	if err != nil {
		tc.t.Fatalf("ParseRequest failed: %v", err)
	}
	return req
}

func readTestResponse(tc *testContext, path string) *ocsp.BasicOCSPResponse {
	tc.t.Helper()
	resp, err := ocsp.ParseBasicFromResponse(tc.readFile(path))
	if err != nil {
		tc.t.Fatalf("ParseBasicFromResponse failed: %v", err)
	}
	return resp
}

// =============================================================================
// Assertions
// =============================================================================

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertError fails the test if err is nil.
func assertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// assertContains fails the test if output does not contain want.
func assertContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Errorf("output does not contain %q:\n%s", want, output)
	}
}
