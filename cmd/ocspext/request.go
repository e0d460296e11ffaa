package main

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/ocspext/internal/audit"
	"github.com/remiblancher/ocspext/internal/ocsp"
	"github.com/remiblancher/ocspext/internal/profile"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "OCSP request operations",
}

var requestNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an unsigned OCSP request",
	Long: `Create an unsigned OCSP request for one or more certificates.

Examples:
  # Request with a random nonce
  ocspext request new --issuer ca.pem --cert server.pem --nonce --out req.der

  # Two certificates, SHA-256 CertIDs, builtin client profile
  ocspext request new --issuer ca.pem --cert a.pem --cert b.pem --hash sha256 --profile client --out req.der`,
	RunE: runRequestNew,
}

var (
	requestNewIssuer      string
	requestNewCerts       []string
	requestNewHash        string
	requestNewNonce       bool
	requestNewNonceLength int
	requestNewProfile     string
	requestNewOut         string
)

func init() {
	requestNewCmd.Flags().StringVar(&requestNewIssuer, "issuer", "", "Issuer certificate (PEM or DER)")
	requestNewCmd.Flags().StringSliceVar(&requestNewCerts, "cert", nil, "Certificate to query (PEM or DER, repeatable)")
	requestNewCmd.Flags().StringVar(&requestNewHash, "hash", "sha1", "CertID hash algorithm (sha1, sha256, sha384, sha512)")
	requestNewCmd.Flags().BoolVar(&requestNewNonce, "nonce", false, "Add a random nonce")
	requestNewCmd.Flags().IntVar(&requestNewNonceLength, "nonce-length", ocsp.DefaultNonceLength, "Nonce length in bytes")
	requestNewCmd.Flags().StringVar(&requestNewProfile, "profile", "", "Extension profile to apply (name or YAML file)")
	requestNewCmd.Flags().StringVarP(&requestNewOut, "out", "o", "", "Output file (DER)")
	_ = requestNewCmd.MarkFlagRequired("issuer")
	_ = requestNewCmd.MarkFlagRequired("cert")
	_ = requestNewCmd.MarkFlagRequired("out")

	requestCmd.AddCommand(requestNewCmd)
}

func parseHashAlgorithm(name string) (crypto.Hash, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return crypto.SHA1, nil
	case "sha256":
		return crypto.SHA256, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("invalid hash: %s (must be sha1, sha256, sha384 or sha512)", name)
	}
}

func runRequestNew(cmd *cobra.Command, args []string) error {
	hashAlg, err := parseHashAlgorithm(requestNewHash)
	if err != nil {
		return err
	}

	issuers, err := loadCertificates(requestNewIssuer)
	if err != nil {
		return err
	}
	var certs []*x509.Certificate
	for _, path := range requestNewCerts {
		c, err := loadCertificates(path)
		if err != nil {
			return err
		}
		certs = append(certs, c...)
	}

	req, err := ocsp.CreateRequest(issuers[0], certs, hashAlg)
	if err != nil {
		return err
	}

	if requestNewNonce {
		err := ocsp.RequestAddNonce(req, nil, requestNewNonceLength)
		if auditErr := audit.LogNonceAdded(typeRequest, requestNewOut, requestNewNonceLength, err == nil, errString(err)); auditErr != nil {
			return auditErr
		}
		if err != nil {
			return err
		}
	}

	var applied string
	if requestNewProfile != "" {
		p, err := profile.LoadProfile(requestNewProfile)
		if err != nil {
			return err
		}
		count, err := p.ApplyRequest(req)
		if auditErr := audit.LogExtensionsApplied(typeRequest, requestNewOut, p.Name, p.Policy.String(), count, err == nil, errString(err)); auditErr != nil {
			return auditErr
		}
		if err != nil {
			return err
		}
		applied = fmt.Sprintf(", profile %s (%d extension(s))", p.Name, count)
	}

	if err := writeMessage(requestNewOut, &message{req: req}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OCSP request for %d certificate(s)%s written to %s\n", len(certs), applied, requestNewOut)
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
