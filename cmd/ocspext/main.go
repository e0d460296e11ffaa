// Command ocspext inspects and edits the extensions of OCSP requests and responses.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/ocspext/internal/audit"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var auditLogPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ocspext",
	Short: "OCSP extension toolkit (RFC 6960 §4.4)",
	Long: `ocspext inspects, builds and edits the extensions carried by OCSP
requests and responses: nonce, CRL references, acceptable response types,
archive cutoff and service locator.

Messages are read and written as DER. Responses are full OCSPResponse
envelopes; their signature is carried over unchanged, so a response whose
extensions were edited must be re-signed before it is served.

Examples:
  # Create a request with a fresh nonce
  ocspext request new --issuer ca.pem --cert server.pem --nonce --out req.der

  # List the extensions of a response
  ocspext ext list resp.der --type response

  # Check that a response answers a request
  ocspext nonce check --request req.der --response resp.der

  # Attach the builtin client profile to a request
  ocspext ext apply --profile client --in req.der --out req2.der`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogPath == "" {
			auditLogPath = os.Getenv("OCSPEXT_AUDIT_LOG")
		}
		// A previous command that failed never ran the post hook.
		if err := audit.Close(); err != nil {
			return fmt.Errorf("failed to close previous audit log: %w", err)
		}
		if err := audit.InitFile(auditLogPath); err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set OCSPEXT_AUDIT_LOG env var)")

	rootCmd.AddCommand(extCmd)     // ocspext ext ...
	rootCmd.AddCommand(nonceCmd)   // ocspext nonce ...
	rootCmd.AddCommand(requestCmd) // ocspext request ...
	rootCmd.AddCommand(profileCmd) // ocspext profile ...
	rootCmd.AddCommand(auditCmd)   // ocspext audit ...
}
