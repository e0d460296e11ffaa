package ocsp

import (
	"crypto"
	_ "crypto/sha1" // register hash implementations for CertID
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// OCSPRequest represents an OCSP request (RFC 6960 §4.1.1).
// OCSPRequest ::= SEQUENCE {
//
//	tbsRequest                  TBSRequest,
//	optionalSignature   [0]     EXPLICIT Signature OPTIONAL }
type OCSPRequest struct {
	TBSRequest        TBSRequest
	OptionalSignature Signature `asn1:"optional,explicit,tag:0"`
}

// TBSRequest is the to-be-signed part of an OCSP request.
// TBSRequest ::= SEQUENCE {
//
//	version             [0]     EXPLICIT Version DEFAULT v1,
//	requestorName       [1]     EXPLICIT GeneralName OPTIONAL,
//	requestList                 SEQUENCE OF Request,
//	requestExtensions   [2]     EXPLICIT Extensions OPTIONAL }
type TBSRequest struct {
	Version           int              `asn1:"optional,explicit,tag:0,default:0"`
	RequestorName     asn1.RawValue    `asn1:"optional,explicit,tag:1"`
	RequestList       []Request        `asn1:"sequence"`
	RequestExtensions []pkix.Extension `asn1:"optional,explicit,tag:2"`
}

// Request is a single certificate status request within an OCSPRequest.
// Request ::= SEQUENCE {
//
//	reqCert                     CertID,
//	singleRequestExtensions     [0] EXPLICIT Extensions OPTIONAL }
type Request struct {
	ReqCert                 CertID
	SingleRequestExtensions []pkix.Extension `asn1:"optional,explicit,tag:0"`
}

// CertID identifies a certificate for which status is requested.
// CertID ::= SEQUENCE {
//
//	hashAlgorithm       AlgorithmIdentifier,
//	issuerNameHash      OCTET STRING,
//	issuerKeyHash       OCTET STRING,
//	serialNumber        CertificateSerialNumber }
type CertID struct {
	HashAlgorithm  pkix.AlgorithmIdentifier
	IssuerNameHash []byte
	IssuerKeyHash  []byte
	SerialNumber   *big.Int
}

// Signature represents an optional signature on the request.
// Signature ::= SEQUENCE {
//
//	signatureAlgorithm      AlgorithmIdentifier,
//	signature               BIT STRING,
//	certs               [0] EXPLICIT SEQUENCE OF Certificate OPTIONAL }
type Signature struct {
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          asn1.BitString
	Certs              []asn1.RawValue `asn1:"optional,explicit,tag:0"`
}

// ParseRequest parses a DER-encoded OCSP request.
func ParseRequest(data []byte) (*OCSPRequest, error) {
	var req OCSPRequest
	rest, err := asn1.Unmarshal(data, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OCSP request: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after OCSP request")
	}

	if req.TBSRequest.Version != 0 {
		return nil, fmt.Errorf("unsupported OCSP request version: %d", req.TBSRequest.Version)
	}

	if len(req.TBSRequest.RequestList) == 0 {
		return nil, fmt.Errorf("OCSP request contains no certificate requests")
	}

	return &req, nil
}

// Marshal encodes the OCSP request to DER format.
func (req *OCSPRequest) Marshal() ([]byte, error) {
	return asn1.Marshal(*req)
}

// Nonce returns the decoded nonce carried in the request extensions, or nil.
func (req *OCSPRequest) Nonce() []byte {
	return nonceFrom(req.TBSRequest.RequestExtensions)
}

var hashOIDs = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA1:   OIDSHA1,
	crypto.SHA256: OIDSHA256,
	crypto.SHA384: OIDSHA384,
	crypto.SHA512: OIDSHA512,
}

// NewCertID creates a CertID for a certificate issued by the given issuer.
func NewCertID(hashAlg crypto.Hash, issuer, cert *x509.Certificate) (*CertID, error) {
	return NewCertIDFromSerial(hashAlg, issuer, cert.SerialNumber)
}

// NewCertIDFromSerial creates a CertID for a serial number from the given issuer.
//
// issuerKeyHash is computed over the subjectPublicKey BIT STRING contents,
// excluding tag, length and unused-bits octet (RFC 6960 §4.1.1).
func NewCertIDFromSerial(hashAlg crypto.Hash, issuer *x509.Certificate, serial *big.Int) (*CertID, error) {
	hashOID, ok := hashOIDs[hashAlg]
	if !ok || !hashAlg.Available() {
		return nil, fmt.Errorf("unsupported hash algorithm: %v", hashAlg)
	}

	var spki struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(issuer.RawSubjectPublicKeyInfo, &spki); err != nil {
		return nil, fmt.Errorf("failed to parse issuer SubjectPublicKeyInfo: %w", err)
	}

	sum := func(data []byte) []byte {
		h := hashAlg.New()
		h.Write(data)
		return h.Sum(nil)
	}

	return &CertID{
		HashAlgorithm:  pkix.AlgorithmIdentifier{Algorithm: hashOID},
		IssuerNameHash: sum(issuer.RawSubject),
		IssuerKeyHash:  sum(spki.PublicKey.Bytes),
		SerialNumber:   serial,
	}, nil
}

// CreateRequest creates an OCSP request for the given certificates.
func CreateRequest(issuer *x509.Certificate, certs []*x509.Certificate, hashAlg crypto.Hash) (*OCSPRequest, error) {
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates provided")
	}

	requests := make([]Request, len(certs))
	for i, cert := range certs {
		certID, err := NewCertID(hashAlg, issuer, cert)
		if err != nil {
			return nil, fmt.Errorf("failed to create CertID for certificate %d: %w", i, err)
		}
		requests[i] = Request{ReqCert: *certID}
	}

	return &OCSPRequest{
		TBSRequest: TBSRequest{RequestList: requests},
	}, nil
}
