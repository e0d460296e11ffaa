package main

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/remiblancher/ocspext/internal/audit"
)

// unclosableWriter accepts events but fails to close.
type unclosableWriter struct{ audit.NopWriter }

func (unclosableWriter) Close() error { return errors.New("flush failed") }

// =============================================================================
// Audit Log Tests
// =============================================================================

func TestF_Audit_CommandsAreRecorded(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	logPath := tc.path("audit.jsonl")

	req := writeRequest(tc, pki, "req.der")
	resp := writeResponse(tc, pki, "resp.der")
	reqNonce := tc.path("req-nonce.der")
	respNonce := tc.path("resp-nonce.der")

	steps := [][]string{
		{"nonce", "add", "--in", req, "--value", "deadbeefcafebabe", "--out", reqNonce},
		{"nonce", "copy", "--request", reqNonce, "--response", resp, "--out", respNonce},
		{"nonce", "check", "--request", reqNonce, "--response", respNonce},
		{"ext", "build", "cutoff", "--time", "20200101000000Z", "--out", tc.path("cutoff.der")},
		{"ext", "apply", "--profile", "responder", "--in", respNonce, "--out", tc.path("resp2.der")},
	}
	for _, args := range steps {
		_, err := executeCommand(rootCmd, append(args, "--audit-log", logPath)...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	output, err := executeCommand(rootCmd, "audit", "verify", "--log", logPath)
	assertNoError(t, err)
	assertContains(t, output, "VERIFICATION PASSED")
	assertContains(t, output, "Total events: 5")

	output, err = executeCommand(rootCmd, "audit", "tail", "--log", logPath, "-n", "10")
	assertNoError(t, err)
	for _, want := range []string{
		"OCSP_NONCE_ADD", "OCSP_NONCE_COPY", "OCSP_NONCE_CHECK", "OCSP_EXT_BUILD", "OCSP_EXT_APPLY",
		"nonce_status=match", "nonce_length=8", "profile=responder", "name=archiveCutoff",
	} {
		assertContains(t, output, want)
	}

	data, err := os.ReadFile(logPath)
	assertNoError(t, err)
	if strings.Contains(strings.ToLower(string(data)), "deadbeefcafebabe") {
		t.Error("audit log contains the nonce value")
	}
}

func TestF_Audit_FailureIsRecorded(t *testing.T) {
	tc := newTestContext(t)
	pki := newTestPKI(tc)
	logPath := tc.path("audit.jsonl")
	req := writeRequest(tc, pki, "req.der")

	_, err := executeCommand(rootCmd, "ext", "apply", "--profile", "responder", "--type", "request",
		"--in", req, "--out", tc.path("out.der"), "--audit-log", logPath)
	assertError(t, err)

	output, err := executeCommand(rootCmd, "audit", "tail", "--log", logPath)
	assertNoError(t, err)
	assertContains(t, output, "✗ OCSP_EXT_APPLY")
	assertContains(t, output, "reason=")
}

func TestF_Audit_EnvironmentVariable(t *testing.T) {
	tc := newTestContext(t)
	logPath := tc.path("env-audit.jsonl")
	t.Setenv("OCSPEXT_AUDIT_LOG", logPath)

	_, err := executeCommand(rootCmd, "ext", "build", "accept", "--oid", "basicOCSPResponse", "--out", tc.path("accept.der"))
	assertNoError(t, err)

	output, err := executeCommand(rootCmd, "audit", "tail", "--log", logPath, "--json")
	assertNoError(t, err)
	assertContains(t, output, `"OCSP_EXT_BUILD"`)
}

func TestF_Audit_Verify_Tampered(t *testing.T) {
	tc := newTestContext(t)
	logPath := tc.path("audit.jsonl")

	for i := 0; i < 2; i++ {
		_, err := executeCommand(rootCmd, "ext", "build", "cutoff", "--time", "20200101000000Z",
			"--out", tc.path("cutoff.der"), "--audit-log", logPath)
		assertNoError(t, err)
	}

	data := tc.readFile(logPath)
	tampered := strings.Replace(string(data), "archiveCutoff", "archiveCutofF", 1)
	if err := os.WriteFile(logPath, []byte(tampered), 0644); err != nil {
		t.Fatal(err)
	}

	output, err := executeCommand(rootCmd, "audit", "verify", "--log", logPath)
	assertError(t, err)
	assertContains(t, output, "VERIFICATION FAILED")
}

// A writer left open by an earlier command is closed before the next one
// starts, and a failure to close it fails that command.
func TestF_Audit_PreviousWriterCloseFailure(t *testing.T) {
	tc := newTestContext(t)
	if err := audit.Init(unclosableWriter{}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = audit.Init(nil) })

	args := []string{"ext", "build", "cutoff", "--time", "20200101000000Z", "--out", tc.path("cutoff.der")}
	_, err := executeCommand(rootCmd, args...)
	assertError(t, err)
	assertContains(t, err.Error(), "failed to close previous audit log")
	assertContains(t, err.Error(), "flush failed")

	_, err = executeCommand(rootCmd, args...)
	assertNoError(t, err)
}

func TestF_Audit_Tail_Errors(t *testing.T) {
	tc := newTestContext(t)

	_, err := executeCommand(rootCmd, "audit", "tail", "--log", tc.path("missing.jsonl"))
	assertError(t, err)

	empty := tc.writeFile("empty.jsonl", nil)
	output, err := executeCommand(rootCmd, "audit", "tail", "--log", empty)
	assertNoError(t, err)
	assertContains(t, output, "Audit log is empty")
}
