package main

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"testing"
	"time"

	"github.com/remiblancher/ocspext/internal/ocsp"
)

// readExtension parses a DER Extension written by ext build.
func readExtension(tc *testContext, path string) pkix.Extension {
	tc.t.Helper()
	var ext pkix.Extension
	rest, err := asn1.Unmarshal(tc.readFile(path), &ext)
	if err != nil || len(rest) > 0 {
		tc.t.Fatalf("invalid extension file: %v (trailing %d)", err, len(rest))
	}
	return ext
}

// =============================================================================
// Ext List Tests
// =============================================================================

func TestF_Ext_List_Request(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	reqPath := writeRequest(tc, pki, "req.der", nonceExt(t, []byte{0xde, 0xad, 0xbe, 0xef}))

	out, err := executeCommand(rootCmd, "ext", "list", reqPath, "--type", "request")
	assertNoError(t, err)
	assertContains(t, out, "Request extensions:")
	assertContains(t, out, "[0] Nonce (1.3.6.1.5.5.7.48.1.2)")
	assertContains(t, out, "deadbeef")
	assertContains(t, out, "Single request 0 (serial 1234): (none)")
}

func TestF_Ext_List_Response(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	cutoff, err := ocsp.NewArchiveCutoff("20200101000000Z")
	assertNoError(t, err)
	cutoff.Critical = true
	respPath := writeResponse(tc, pki, "resp.der", cutoff)

	out, err := executeCommand(rootCmd, "ext", "list", respPath, "--type", "response")
	assertNoError(t, err)
	assertContains(t, out, "Response extensions:")
	assertContains(t, out, "archiveCutoff (1.3.6.1.5.5.7.48.1.6) critical")
	assertContains(t, out, "20200101000000Z")
	assertContains(t, out, "Single response 0 (serial")
	assertContains(t, out, ", good)")
}

func TestF_Ext_List_Errors(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	reqPath := writeRequest(tc, pki, "req.der")

	tests := []struct {
		name string
		args []string
	}{
		{"[Functional] List: missing file", []string{"ext", "list", tc.path("missing.der")}},
		{"[Functional] List: bad type", []string{"ext", "list", reqPath, "--type", "certificate"}},
		{"[Functional] List: request read as response", []string{"ext", "list", reqPath, "--type", "response"}},
		{"[Functional] List: no file", []string{"ext", "list"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(rootCmd, tt.args...)
			assertError(t, err)
		})
	}
}

// =============================================================================
// Ext Build Tests
// =============================================================================

func TestF_Ext_Build_CrlID(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("crlid.der")

	output, err := executeCommand(rootCmd, "ext", "build", "crlid",
		"--url", "http://crl.example.com/ca.crl", "--number", "42", "--time", "20240101000000Z", "--out", out)
	assertNoError(t, err)
	assertContains(t, output, "CrlID extension written")

	ext := readExtension(tc, out)
	if !ext.Id.Equal(ocsp.OIDOcspCRL) || ext.Critical {
		t.Errorf("extension = %v critical=%v", ext.Id, ext.Critical)
	}
	v, err := ocsp.Decode(ext.Id, ext.Value)
	assertNoError(t, err)
	crl := v.(*ocsp.CrlID)
	if crl.URL != "http://crl.example.com/ca.crl" || crl.Number.Int64() != 42 || crl.Time != "20240101000000Z" {
		t.Errorf("CrlID = %+v", crl)
	}
}

func TestF_Ext_Build_Accept(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("accept.der")

	_, err := executeCommand(rootCmd, "ext", "build", "accept", "--oid", "basicOCSPResponse", "--critical", "--out", out)
	assertNoError(t, err)

	ext := readExtension(tc, out)
	if !ext.Critical {
		t.Error("--critical was not honored")
	}
	v, err := ocsp.Decode(ext.Id, ext.Value)
	assertNoError(t, err)
	accept := v.(ocsp.AcceptableResponses)
	if len(accept) != 1 || !accept[0].Equal(ocsp.OIDOcspBasic) {
		t.Errorf("AcceptableResponses = %v", accept)
	}
}

func TestF_Ext_Build_Cutoff(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("cutoff.der")

	_, err := executeCommand(rootCmd, "ext", "build", "cutoff", "--time", "20200101000000Z", "--out", out)
	assertNoError(t, err)

	ext := readExtension(tc, out)
	v, err := ocsp.Decode(ext.Id, ext.Value)
	assertNoError(t, err)
	if v.(ocsp.ArchiveCutoff) != "20200101000000Z" {
		t.Errorf("ArchiveCutoff = %v", v)
	}
}

func TestF_Ext_Build_CutoffRetention(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("cutoff.der")

	before := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	_, err := executeCommand(rootCmd, "ext", "build", "cutoff", "--retention", "24h", "--out", out)
	assertNoError(t, err)
	after := time.Now().Add(-24 * time.Hour)

	ext := readExtension(tc, out)
	v, err := ocsp.Decode(ext.Id, ext.Value)
	assertNoError(t, err)
	got, err := ocsp.GeneralizedTime(v.(ocsp.ArchiveCutoff)).Time()
	assertNoError(t, err)
	if got.Before(before) || got.After(after) {
		t.Errorf("cutoff = %v, want between %v and %v", got, before, after)
	}
}

func TestF_Ext_Build_SvcLoc(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("svcloc.der")

	_, err := executeCommand(rootCmd, "ext", "build", "svcloc",
		"--issuer", "CN=Issuing CA,O=Example,C=FR",
		"--url", "http://ocsp1.example.com", "--url", "http://ocsp2.example.com", "--out", out)
	assertNoError(t, err)

	ext := readExtension(tc, out)
	v, err := ocsp.Decode(ext.Id, ext.Value)
	assertNoError(t, err)
	sl := v.(*ocsp.ServiceLocator)
	if len(sl.Locator) != 2 || sl.Locator[1].URI != "http://ocsp2.example.com" {
		t.Errorf("Locator = %+v", sl.Locator)
	}
	if name := sl.IssuerName(); name.CommonName != "Issuing CA" || len(name.Country) != 1 || name.Country[0] != "FR" {
		t.Errorf("Issuer = %v", name)
	}
}

func TestF_Ext_Build_Errors(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("out.der")

	tests := []struct {
		name string
		args []string
	}{
		{"[Functional] Build: crlid without fields", []string{"ext", "build", "crlid", "--out", out}},
		{"[Functional] Build: crlid bad number", []string{"ext", "build", "crlid", "--number", "x", "--out", out}},
		{"[Functional] Build: crlid bad time", []string{"ext", "build", "crlid", "--time", "2024", "--out", out}},
		{"[Functional] Build: accept unknown name", []string{"ext", "build", "accept", "--oid", "foo", "--out", out}},
		{"[Functional] Build: cutoff bad time", []string{"ext", "build", "cutoff", "--time", "yesterday", "--out", out}},
		{"[Functional] Build: cutoff without time", []string{"ext", "build", "cutoff", "--out", out}},
		{"[Functional] Build: cutoff time and retention", []string{"ext", "build", "cutoff", "--time", "20200101000000Z", "--retention", "1h", "--out", out}},
		{"[Functional] Build: cutoff negative retention", []string{"ext", "build", "cutoff", "--retention=-1h", "--out", out}},
		{"[Functional] Build: svcloc bad issuer", []string{"ext", "build", "svcloc", "--issuer", "X=1", "--out", out}},
		{"[Functional] Build: missing out", []string{"ext", "build", "cutoff", "--time", "20200101000000Z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(rootCmd, tt.args...)
			assertError(t, err)
		})
	}
}

// =============================================================================
// Ext Apply Tests
// =============================================================================

func TestF_Ext_Apply_BuiltinClient(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	in := writeRequest(tc, pki, "req.der")
	out := tc.path("req2.der")

	output, err := executeCommand(rootCmd, "ext", "apply", "--profile", "client", "--in", in, "--out", out)
	assertNoError(t, err)
	assertContains(t, output, "Profile client applied to request: 2 extension(s) changed")

	req := readTestRequest(tc, out)
	if len(req.Nonce()) != 32 {
		t.Errorf("nonce length = %d, want 32", len(req.Nonce()))
	}
	if ocsp.RequestExts.FindByID(req, ocsp.OIDOcspResponse, -1) < 0 {
		t.Error("acceptable-responses extension missing")
	}
}

func TestF_Ext_Apply_ResponseFile(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	in := writeResponse(tc, pki, "resp.der")
	out := tc.path("resp2.der")

	profilePath := tc.writeFile("resp.yaml", []byte(`
name: custom
target: response
extensions:
  - type: crl-id
    number: "7"
`))

	_, err := executeCommand(rootCmd, "ext", "apply", "--profile", profilePath, "--type", "response", "--in", in, "--out", out)
	assertNoError(t, err)

	resp := readTestResponse(tc, out)
	te, err := ocsp.SingleResponseExts.GetTyped(&resp.TBSResponseData.Responses[0], ocsp.OIDOcspCRL, -1)
	if err != nil || te == nil {
		t.Fatalf("GetTyped(CrlID) = %v, %v", te, err)
	}
	if te.Value.(*ocsp.CrlID).Number.Int64() != 7 {
		t.Errorf("CrlID = %v", te.Value)
	}
}

func TestF_Ext_Apply_Errors(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	reqPath := writeRequest(tc, pki, "req.der")
	respPath := writeResponse(tc, pki, "resp.der")
	out := tc.path("out.der")

	tests := []struct {
		name string
		args []string
	}{
		{"[Functional] Apply: unknown profile", []string{"ext", "apply", "--profile", "missing", "--in", reqPath, "--out", out}},
		{"[Functional] Apply: target mismatch", []string{"ext", "apply", "--profile", "client", "--type", "response", "--in", respPath, "--out", out}},
		{"[Functional] Apply: wrong message", []string{"ext", "apply", "--profile", "responder", "--in", reqPath, "--out", out}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(rootCmd, tt.args...)
			assertError(t, err)
		})
	}
}
