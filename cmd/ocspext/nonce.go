package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/ocspext/internal/audit"
	"github.com/remiblancher/ocspext/internal/ocsp"
)

var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "OCSP nonce operations (RFC 6960 §4.4.1)",
	Long: `Add, check and propagate OCSP nonces.

A nonce binds a response to the request it answers and prevents replay.
The client adds a random nonce to its request, the responder echoes it in
its response and the client checks that both match.

Examples:
  # Add a 32-byte random nonce to a request
  ocspext nonce add --type request --in req.der --length 32 --out req2.der

  # Echo the request nonce into a response
  ocspext nonce copy --request req.der --response resp.der --out resp2.der

  # Check a response against its request
  ocspext nonce check --request req.der --response resp.der`,
}

var nonceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a nonce to a request or response",
	Long: `Add a nonce to a request or response, replacing any existing one.

Without --value, --length random bytes are generated (default 16).`,
	RunE: runNonceAdd,
}

var nonceCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the nonces of a request and its response",
	Long: `Compare the nonce of a request with the nonce of its response.

Outcomes:
   1 match         both nonces present and equal
   2 bothAbsent    no nonce on either side
   3 responseOnly  only the response carries a nonce
  -1 requestOnly   the responder ignored the nonce
   0 mismatch      both present and different (the command fails)`,
	RunE: runNonceCheck,
}

var nonceCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Echo the request nonce into a response",
	RunE:  runNonceCopy,
}

var (
	// nonce add flags
	nonceAddType   string
	nonceAddIn     string
	nonceAddValue  string
	nonceAddLength int
	nonceAddOut    string

	// nonce check / copy flags
	nonceRequest  string
	nonceResponse string
	nonceCopyOut  string
)

func init() {
	nonceAddCmd.Flags().StringVar(&nonceAddType, "type", typeRequest, "Message type (request, response)")
	nonceAddCmd.Flags().StringVar(&nonceAddIn, "in", "", "Input file (DER)")
	nonceAddCmd.Flags().StringVar(&nonceAddValue, "value", "", "Nonce value (hex, default: random)")
	nonceAddCmd.Flags().IntVar(&nonceAddLength, "length", ocsp.DefaultNonceLength, "Random nonce length in bytes")
	nonceAddCmd.Flags().StringVarP(&nonceAddOut, "out", "o", "", "Output file (DER)")
	_ = nonceAddCmd.MarkFlagRequired("in")
	_ = nonceAddCmd.MarkFlagRequired("out")

	for _, c := range []*cobra.Command{nonceCheckCmd, nonceCopyCmd} {
		c.Flags().StringVar(&nonceRequest, "request", "", "Request file (DER)")
		c.Flags().StringVar(&nonceResponse, "response", "", "Response file (DER)")
		_ = c.MarkFlagRequired("request")
		_ = c.MarkFlagRequired("response")
	}
	nonceCopyCmd.Flags().StringVarP(&nonceCopyOut, "out", "o", "", "Output response file (DER)")
	_ = nonceCopyCmd.MarkFlagRequired("out")

	nonceCmd.AddCommand(nonceAddCmd)
	nonceCmd.AddCommand(nonceCheckCmd)
	nonceCmd.AddCommand(nonceCopyCmd)
}

func runNonceAdd(cmd *cobra.Command, args []string) error {
	var value []byte
	if nonceAddValue != "" {
		v, err := hex.DecodeString(nonceAddValue)
		if err != nil || len(v) == 0 {
			return fmt.Errorf("invalid --value: must be non-empty hex")
		}
		value = v
	} else if nonceAddLength <= 0 {
		return fmt.Errorf("invalid --length %d: must be positive", nonceAddLength)
	}

	m, err := readMessage(nonceAddIn, nonceAddType)
	if err != nil {
		return err
	}

	if m.req != nil {
		err = ocsp.RequestAddNonce(m.req, value, nonceAddLength)
	} else {
		err = ocsp.BasicAddNonce(m.resp, value, nonceAddLength)
	}
	length := nonceAddLength
	if value != nil {
		length = len(value)
	}
	if err != nil {
		if auditErr := audit.LogNonceAdded(nonceAddType, nonceAddOut, length, false, err.Error()); auditErr != nil {
			return auditErr
		}
		return err
	}

	if err := writeMessage(nonceAddOut, m); err != nil {
		return err
	}
	if err := audit.LogNonceAdded(nonceAddType, nonceAddOut, length, true, ""); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Nonce (%d bytes) added to %s, written to %s\n", length, nonceAddType, nonceAddOut)
	return nil
}

func runNonceCheck(cmd *cobra.Command, args []string) error {
	req, err := readRequest(nonceRequest)
	if err != nil {
		return err
	}
	resp, err := readResponse(nonceResponse)
	if err != nil {
		return err
	}

	status := ocsp.CheckNonce(req, resp)
	if err := audit.LogNonceChecked(nonceRequest, nonceResponse, status.String(), status.Acceptable()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Nonce status: %s (%d)\n", status, int(status))
	return status.Err()
}

func runNonceCopy(cmd *cobra.Command, args []string) error {
	req, err := readRequest(nonceRequest)
	if err != nil {
		return err
	}
	resp, err := readResponse(nonceResponse)
	if err != nil {
		return err
	}

	copied := ocsp.RequestExts.FindByID(req, ocsp.OIDOcspNonce, -1) >= 0
	if err := ocsp.CopyNonce(resp, req); err != nil {
		return err
	}
	if err := writeMessage(nonceCopyOut, &message{resp: resp}); err != nil {
		return err
	}
	if err := audit.LogNonceCopied(nonceRequest, nonceCopyOut, copied); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if copied {
		fmt.Fprintf(w, "Nonce copied to %s\n", nonceCopyOut)
	} else {
		fmt.Fprintf(w, "Request carries no nonce; %s written unchanged\n", nonceCopyOut)
	}
	return nil
}
