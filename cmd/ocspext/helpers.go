package main

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"io"
	"os"

	"github.com/remiblancher/ocspext/internal/ocsp"
)

// Message kinds accepted by --type.
const (
	typeRequest  = "request"
	typeResponse = "response"
)

func checkMessageType(t string) error {
	if t != typeRequest && t != typeResponse {
		return fmt.Errorf("invalid --type %q (must be request or response)", t)
	}
	return nil
}

// message holds one parsed OCSP message; exactly one field is set.
type message struct {
	req  *ocsp.OCSPRequest
	resp *ocsp.BasicOCSPResponse
}

func (m *message) kind() string {
	if m.req != nil {
		return typeRequest
	}
	return typeResponse
}

// readMessage reads a DER request, or a DER OCSPResponse envelope.
func readMessage(path, msgType string) (*message, error) {
	if err := checkMessageType(msgType); err != nil {
		return nil, err
	}
	if msgType == typeRequest {
		req, err := readRequest(path)
		if err != nil {
			return nil, err
		}
		return &message{req: req}, nil
	}
	resp, err := readResponse(path)
	if err != nil {
		return nil, err
	}
	return &message{resp: resp}, nil
}

func readRequest(path string) (*ocsp.OCSPRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	req, err := ocsp.ParseRequest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

func readResponse(path string) (*ocsp.BasicOCSPResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	resp, err := ocsp.ParseBasicFromResponse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resp, nil
}

// writeMessage encodes m and writes it to path.
func writeMessage(path string, m *message) error {
	var der []byte
	var err error
	if m.req != nil {
		der, err = m.req.Marshal()
	} else {
		der, err = m.resp.MarshalResponse()
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", m.kind(), err)
	}
	return writeFile(path, der)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// loadCertificates reads every CERTIFICATE block of a PEM file,
// or a single DER certificate.
func loadCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) > 0 {
		return certs, nil
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%s: no certificate found: %w", path, err)
	}
	return []*x509.Certificate{cert}, nil
}

// writeExtension writes ext as a DER Extension SEQUENCE.
func writeExtension(path string, ext pkix.Extension) error {
	der, err := asn1.Marshal(ext)
	if err != nil {
		return fmt.Errorf("failed to encode extension: %w", err)
	}
	return writeFile(path, der)
}

// printExtensions writes one line per extension of exts under title.
func printExtensions(w io.Writer, title string, exts []pkix.Extension) {
	if len(exts) == 0 {
		fmt.Fprintf(w, "%s: (none)\n", title)
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for i, ext := range exts {
		critical := ""
		if ext.Critical {
			critical = " critical"
		}
		fmt.Fprintf(w, "  [%d] %s (%s)%s\n", i, ocsp.OIDName(ext.Id), ext.Id, critical)
		fmt.Fprintf(w, "      %s\n", describeValue(ext))
	}
}

func describeValue(ext pkix.Extension) string {
	v, err := ocsp.Decode(ext.Id, ext.Value)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%x", ext.Value)
}
