package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/ocspext/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log management",
	Long: `Commands for managing and verifying audit logs.

The audit log is a tamper-evident record of nonce and extension operations.
Each event is chained to the previous one with a SHA-256 hash. Nonce values
are never logged, only their length.

Examples:
  # Verify audit log integrity
  ocspext audit verify --log /var/log/ocspext/audit.jsonl

  # Show last 10 events
  ocspext audit tail --log /var/log/ocspext/audit.jsonl -n 10`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit log integrity",
	Long: `Verify the cryptographic hash chain of an audit log file.

Each event in the log contains:
  - hash_prev: SHA-256 hash of the previous event
  - hash: SHA-256 hash of the current event

The chain starts with hash_prev="sha256:genesis" for the first event.`,
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit events",
	RunE:  runAuditTail,
}

var (
	auditLogFile  string
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditVerifyCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to audit log file (required)")
	_ = auditVerifyCmd.MarkFlagRequired("log")

	auditTailCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to audit log file (required)")
	_ = auditTailCmd.MarkFlagRequired("log")
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Verifying audit log: %s\n\n", auditLogFile)

	count, err := audit.VerifyChain(auditLogFile)
	if err != nil {
		fmt.Fprintf(w, "VERIFICATION FAILED\n")
		fmt.Fprintf(w, "  Valid events: %d\n", count)
		fmt.Fprintf(w, "  Error: %s\n", err)
		return fmt.Errorf("audit log verification failed: %w", err)
	}

	fmt.Fprintf(w, "VERIFICATION PASSED\n")
	fmt.Fprintf(w, "  Total events: %d\n", count)
	fmt.Fprintf(w, "  Hash chain: VALID\n")
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	f, err := os.Open(auditLogFile)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(lines) == 0 {
		fmt.Fprintln(w, "Audit log is empty")
		return nil
	}
	if auditTailNum > 0 && len(lines) > auditTailNum {
		lines = lines[len(lines)-auditTailNum:]
	}

	if auditShowJSON {
		fmt.Fprintf(w, "[\n%s\n]\n", strings.Join(lines, ",\n"))
		return nil
	}

	for _, line := range lines {
		var event audit.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
			continue
		}
		printEvent(w, &event)
	}
	return nil
}

func printEvent(w io.Writer, e *audit.Event) {
	resultIcon := "✓"
	if e.Result == audit.ResultFailure {
		resultIcon = "✗"
	}

	fmt.Fprintf(w, "[%s] %s %s\n", e.Timestamp, resultIcon, e.EventType)
	fmt.Fprintf(w, "    Actor:  %s@%s\n", e.Actor.ID, e.Actor.Host)

	if e.Object.Type != "" {
		fmt.Fprintf(w, "    Object: %s", e.Object.Type)
		if e.Object.Name != "" {
			fmt.Fprintf(w, " name=%s", e.Object.Name)
		}
		if e.Object.OID != "" {
			fmt.Fprintf(w, " oid=%s", e.Object.OID)
		}
		if e.Object.Path != "" {
			fmt.Fprintf(w, " path=%s", e.Object.Path)
		}
		fmt.Fprintln(w)
	}

	c := e.Context
	var ctx []string
	if c.Profile != "" {
		ctx = append(ctx, "profile="+c.Profile)
	}
	if c.Policy != "" {
		ctx = append(ctx, "policy="+c.Policy)
	}
	if c.NonceStatus != "" {
		ctx = append(ctx, "nonce_status="+c.NonceStatus)
	}
	if c.NonceLength > 0 {
		ctx = append(ctx, fmt.Sprintf("nonce_length=%d", c.NonceLength))
	}
	if c.Count > 0 {
		ctx = append(ctx, fmt.Sprintf("count=%d", c.Count))
	}
	if c.Critical {
		ctx = append(ctx, "critical")
	}
	if c.Reason != "" {
		ctx = append(ctx, "reason="+c.Reason)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(w, "    Context: %s\n", strings.Join(ctx, " "))
	}

	fmt.Fprintln(w)
}
