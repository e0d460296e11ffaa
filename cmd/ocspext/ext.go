package main

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/remiblancher/ocspext/internal/audit"
	"github.com/remiblancher/ocspext/internal/ocsp"
	"github.com/remiblancher/ocspext/internal/profile"
)

var extCmd = &cobra.Command{
	Use:   "ext",
	Short: "Inspect, build and apply OCSP extensions",
	Long: `Inspect, build and apply OCSP extensions (RFC 6960 §4.4).

Examples:
  # List the extensions of a request and of each of its single requests
  ocspext ext list req.der --type request

  # Build a CRL reference extension
  ocspext ext build crlid --url http://crl.example.com/ca.crl --number 42 --out crlid.der

  # Apply an extension profile to a response
  ocspext ext apply --profile responder --in resp.der --out resp2.der`,
}

var extListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List the extensions of a DER request or response",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtList,
}

var extBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a standalone DER extension",
	Long: `Build one of the known OCSP extensions and write it as a DER
Extension SEQUENCE { extnID, critical, extnValue }.`,
}

var extBuildCrlIDCmd = &cobra.Command{
	Use:   "crlid",
	Short: "Build a CRL reference extension (id-pkix-ocsp-crl)",
	Long: `Build a CRL reference extension. At least one of --url, --number
and --time is required; the others are left out.

Example:
  ocspext ext build crlid --url http://crl.example.com/ca.crl --number 42 --time 20240101000000Z --out crlid.der`,
	RunE: runExtBuildCrlID,
}

var extBuildAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Build an acceptable-responses extension (id-pkix-ocsp-response)",
	Long: `Build an acceptable-responses extension from response type names.

Example:
  ocspext ext build accept --oid basicOCSPResponse --out accept.der`,
	RunE: runExtBuildAccept,
}

var extBuildCutoffCmd = &cobra.Command{
	Use:   "cutoff",
	Short: "Build an archive-cutoff extension (id-pkix-ocsp-archive-cutoff)",
	Long: `Build an archive-cutoff extension, either from an explicit --time or
as the current time minus a --retention interval.

Examples:
  ocspext ext build cutoff --time 20200101000000Z --out cutoff.der
  ocspext ext build cutoff --retention 87600h --out cutoff.der`,
	RunE: runExtBuildCutoff,
}

var extBuildSvcLocCmd = &cobra.Command{
	Use:   "svcloc",
	Short: "Build a service-locator extension (id-pkix-ocsp-service-locator)",
	Long: `Build a service-locator extension naming the issuer of the certificate
and, optionally, the responders that are authoritative for it.

Example:
  ocspext ext build svcloc --issuer "CN=Issuing CA,O=Example,C=FR" --url http://ocsp.example.com --out svcloc.der`,
	RunE: runExtBuildSvcLoc,
}

var extApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply an extension profile to a request or response",
	Long: `Apply a YAML extension profile to a DER request or response.

--profile accepts a builtin profile name (see "ocspext profile list") or a
path to a YAML file. --type defaults to the profile target.

Example:
  ocspext ext apply --profile client --in req.der --out req2.der`,
	RunE: runExtApply,
}

var (
	// ext list flags
	extListType string

	// ext build flags
	extBuildOut      string
	extBuildCritical bool
	extBuildURL      string
	extBuildNumber   string
	extBuildTime     string
	extBuildRetain   time.Duration
	extBuildOIDs     []string
	extBuildIssuer   string
	extBuildURLs     []string

	// ext apply flags
	extApplyProfile string
	extApplyType    string
	extApplyIn      string
	extApplyOut     string
)

func init() {
	extListCmd.Flags().StringVar(&extListType, "type", typeRequest, "Message type (request, response)")

	for _, c := range []*cobra.Command{extBuildCrlIDCmd, extBuildAcceptCmd, extBuildCutoffCmd, extBuildSvcLocCmd} {
		c.Flags().StringVarP(&extBuildOut, "out", "o", "", "Output file (DER)")
		c.Flags().BoolVar(&extBuildCritical, "critical", false, "Mark the extension critical")
		_ = c.MarkFlagRequired("out")
		extBuildCmd.AddCommand(c)
	}
	extBuildCrlIDCmd.Flags().StringVar(&extBuildURL, "url", "", "CRL URL")
	extBuildCrlIDCmd.Flags().StringVar(&extBuildNumber, "number", "", "CRL number (decimal)")
	extBuildCrlIDCmd.Flags().StringVar(&extBuildTime, "time", "", "CRL thisUpdate (GeneralizedTime, e.g. 20240101000000Z)")
	extBuildAcceptCmd.Flags().StringSliceVar(&extBuildOIDs, "oid", nil, "Response type name or OID (repeatable)")
	_ = extBuildAcceptCmd.MarkFlagRequired("oid")
	extBuildCutoffCmd.Flags().StringVar(&extBuildTime, "time", "", "Archive cutoff (GeneralizedTime)")
	extBuildCutoffCmd.Flags().DurationVar(&extBuildRetain, "retention", 0, "Retention interval subtracted from the current time")
	extBuildCutoffCmd.MarkFlagsOneRequired("time", "retention")
	extBuildCutoffCmd.MarkFlagsMutuallyExclusive("time", "retention")
	extBuildSvcLocCmd.Flags().StringVar(&extBuildIssuer, "issuer", "", "Issuer DN (e.g. \"CN=CA,O=Example,C=FR\")")
	extBuildSvcLocCmd.Flags().StringSliceVar(&extBuildURLs, "url", nil, "Responder URL (repeatable)")
	_ = extBuildSvcLocCmd.MarkFlagRequired("issuer")

	extApplyCmd.Flags().StringVar(&extApplyProfile, "profile", "", "Profile name or YAML file")
	extApplyCmd.Flags().StringVar(&extApplyType, "type", "", "Message type (request, response; default: profile target)")
	extApplyCmd.Flags().StringVar(&extApplyIn, "in", "", "Input file (DER)")
	extApplyCmd.Flags().StringVarP(&extApplyOut, "out", "o", "", "Output file (DER)")
	_ = extApplyCmd.MarkFlagRequired("profile")
	_ = extApplyCmd.MarkFlagRequired("in")
	_ = extApplyCmd.MarkFlagRequired("out")

	extCmd.AddCommand(extListCmd)
	extCmd.AddCommand(extBuildCmd)
	extCmd.AddCommand(extApplyCmd)
}

func runExtList(cmd *cobra.Command, args []string) error {
	m, err := readMessage(args[0], extListType)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if m.req != nil {
		printExtensions(w, "Request extensions", m.req.TBSRequest.RequestExtensions)
		for i, r := range m.req.TBSRequest.RequestList {
			printExtensions(w, fmt.Sprintf("Single request %d (serial %X)", i, r.ReqCert.SerialNumber), r.SingleRequestExtensions)
		}
		return nil
	}

	printExtensions(w, "Response extensions", m.resp.TBSResponseData.ResponseExtensions)
	for i, r := range m.resp.TBSResponseData.Responses {
		status := "invalid status"
		if s, err := r.Status(); err == nil {
			status = s.String()
		}
		printExtensions(w, fmt.Sprintf("Single response %d (serial %X, %s)", i, r.CertID.SerialNumber, status), r.SingleExtensions)
	}
	return nil
}

func runExtBuildCrlID(cmd *cobra.Command, args []string) error {
	if extBuildURL == "" && extBuildNumber == "" && extBuildTime == "" {
		return fmt.Errorf("at least one of --url, --number or --time is required")
	}
	var number *big.Int
	if extBuildNumber != "" {
		n, ok := new(big.Int).SetString(extBuildNumber, 10)
		if !ok || n.Sign() < 0 {
			return fmt.Errorf("invalid --number %q", extBuildNumber)
		}
		number = n
	}
	return finishBuild(cmd, ocsp.OIDOcspCRL, func() (pkix.Extension, error) {
		return ocsp.NewCrlID(extBuildURL, number, extBuildTime)
	})
}

func runExtBuildAccept(cmd *cobra.Command, args []string) error {
	for _, name := range extBuildOIDs {
		if _, ok := ocsp.LookupOID(name); !ok {
			return fmt.Errorf("unknown response type %q", name)
		}
	}
	return finishBuild(cmd, ocsp.OIDOcspResponse, func() (pkix.Extension, error) {
		return ocsp.NewAcceptableResponses(extBuildOIDs)
	})
}

func runExtBuildCutoff(cmd *cobra.Command, args []string) error {
	cutoff := extBuildTime
	if cmd.Flags().Changed("retention") {
		if extBuildRetain <= 0 {
			return fmt.Errorf("invalid --retention %s: must be positive", extBuildRetain)
		}
		cutoff = ocsp.NewGeneralizedTime(time.Now().Add(-extBuildRetain)).String()
	}
	return finishBuild(cmd, ocsp.OIDOcspArchiveCutoff, func() (pkix.Extension, error) {
		return ocsp.NewArchiveCutoff(cutoff)
	})
}

func runExtBuildSvcLoc(cmd *cobra.Command, args []string) error {
	issuer, err := profile.ParseDN(extBuildIssuer)
	if err != nil {
		return err
	}
	return finishBuild(cmd, ocsp.OIDOcspServiceLocator, func() (pkix.Extension, error) {
		return ocsp.NewServiceLocator(issuer, extBuildURLs)
	})
}

// finishBuild runs build, records the outcome and writes the extension.
func finishBuild(cmd *cobra.Command, id asn1.ObjectIdentifier, build func() (pkix.Extension, error)) error {
	name := ocsp.OIDName(id)

	ext, err := build()
	if err != nil {
		if auditErr := audit.LogExtensionBuilt(id.String(), name, extBuildOut, extBuildCritical, false, err.Error()); auditErr != nil {
			return auditErr
		}
		return err
	}
	ext.Critical = extBuildCritical

	if err := writeExtension(extBuildOut, ext); err != nil {
		return err
	}
	if err := audit.LogExtensionBuilt(ext.Id.String(), name, extBuildOut, ext.Critical, true, ""); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s extension written to %s\n", name, extBuildOut)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", describeValue(ext))
	return nil
}

func runExtApply(cmd *cobra.Command, args []string) error {
	p, err := profile.LoadProfile(extApplyProfile)
	if err != nil {
		return err
	}
	msgType := extApplyType
	if msgType == "" {
		msgType = string(p.Target)
	}

	m, err := readMessage(extApplyIn, msgType)
	if err != nil {
		return err
	}

	var count int
	if m.req != nil {
		count, err = p.ApplyRequest(m.req)
	} else {
		count, err = p.ApplyResponse(m.resp)
	}
	if err != nil {
		if auditErr := audit.LogExtensionsApplied(msgType, extApplyOut, p.Name, p.Policy.String(), 0, false, err.Error()); auditErr != nil {
			return auditErr
		}
		return err
	}

	if err := writeMessage(extApplyOut, m); err != nil {
		return err
	}
	if err := audit.LogExtensionsApplied(msgType, extApplyOut, p.Name, p.Policy.String(), count, true, ""); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Profile %s applied to %s: %d extension(s) changed\n", p.Name, msgType, count)
	fmt.Fprintf(w, "  %s\n", strings.Join(p.Summary(), "\n  "))
	fmt.Fprintf(w, "Written to %s\n", extApplyOut)
	return nil
}
