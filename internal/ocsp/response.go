package ocsp

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"time"
)

// ResponseStatus represents the status of an OCSP response.
type ResponseStatus int

const (
	StatusSuccessful       ResponseStatus = 0
	StatusMalformedRequest ResponseStatus = 1
	StatusInternalError    ResponseStatus = 2
	StatusTryLater         ResponseStatus = 3
	// 4 is not used
	StatusSigRequired  ResponseStatus = 5
	StatusUnauthorized ResponseStatus = 6
)

// String returns a human-readable status string.
func (s ResponseStatus) String() string {
	switch s {
	case StatusSuccessful:
		return "successful"
	case StatusMalformedRequest:
		return "malformedRequest"
	case StatusInternalError:
		return "internalError"
	case StatusTryLater:
		return "tryLater"
	case StatusSigRequired:
		return "sigRequired"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// CertStatus represents the revocation status of a certificate.
type CertStatus int

const (
	CertStatusGood    CertStatus = 0
	CertStatusRevoked CertStatus = 1
	CertStatusUnknown CertStatus = 2
)

// String returns a human-readable status string.
func (s CertStatus) String() string {
	switch s {
	case CertStatusGood:
		return "good"
	case CertStatusRevoked:
		return "revoked"
	case CertStatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// OCSPResponse represents an OCSP response (RFC 6960 §4.2.1).
// OCSPResponse ::= SEQUENCE {
//
//	responseStatus         OCSPResponseStatus,
//	responseBytes          [0] EXPLICIT ResponseBytes OPTIONAL }
type OCSPResponse struct {
	Status        asn1.Enumerated
	ResponseBytes ResponseBytes `asn1:"optional,explicit,tag:0"`
}

// ResponseBytes holds the typed response payload.
// ResponseBytes ::= SEQUENCE {
//
//	responseType   OBJECT IDENTIFIER,
//	response       OCTET STRING }
type ResponseBytes struct {
	ResponseType asn1.ObjectIdentifier
	Response     []byte
}

// BasicOCSPResponse is the standard response type (RFC 6960 §4.2.1).
// BasicOCSPResponse ::= SEQUENCE {
//
//	tbsResponseData      ResponseData,
//	signatureAlgorithm   AlgorithmIdentifier,
//	signature            BIT STRING,
//	certs            [0] EXPLICIT SEQUENCE OF Certificate OPTIONAL }
type BasicOCSPResponse struct {
	TBSResponseData    ResponseData
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          asn1.BitString
	Certs              []asn1.RawValue `asn1:"optional,explicit,tag:0"`
}

// ResponseData contains the response information to be signed.
// ResponseData ::= SEQUENCE {
//
//	version              [0] EXPLICIT Version DEFAULT v1,
//	responderID              ResponderID,
//	producedAt               GeneralizedTime,
//	responses                SEQUENCE OF SingleResponse,
//	responseExtensions   [1] EXPLICIT Extensions OPTIONAL }
type ResponseData struct {
	Version            int              `asn1:"optional,explicit,tag:0,default:0"`
	ResponderID        asn1.RawValue    // CHOICE: byName [1] or byKey [2]
	ProducedAt         time.Time        `asn1:"generalized"`
	Responses          []SingleResponse `asn1:"sequence"`
	ResponseExtensions []pkix.Extension `asn1:"optional,explicit,tag:1"`
}

// SingleResponse contains status for a single certificate.
// SingleResponse ::= SEQUENCE {
//
//	certID                       CertID,
//	certStatus                   CertStatus,
//	thisUpdate                   GeneralizedTime,
//	nextUpdate           [0]     EXPLICIT GeneralizedTime OPTIONAL,
//	singleExtensions     [1]     EXPLICIT Extensions OPTIONAL }
type SingleResponse struct {
	CertID           CertID
	CertStatus       asn1.RawValue
	ThisUpdate       time.Time        `asn1:"generalized"`
	NextUpdate       time.Time        `asn1:"optional,explicit,tag:0,generalized"`
	SingleExtensions []pkix.Extension `asn1:"optional,explicit,tag:1"`
}

// Status returns the certificate status carried by the CHOICE.
func (s *SingleResponse) Status() (CertStatus, error) {
	if s.CertStatus.Class != asn1.ClassContextSpecific {
		return 0, fmt.Errorf("unexpected cert status class: %d", s.CertStatus.Class)
	}
	switch s.CertStatus.Tag {
	case 0, 1, 2:
		return CertStatus(s.CertStatus.Tag), nil
	default:
		return 0, fmt.Errorf("unknown cert status tag: %d", s.CertStatus.Tag)
	}
}

// ParseResponse parses a DER-encoded OCSPResponse envelope.
func ParseResponse(data []byte) (*OCSPResponse, error) {
	var resp OCSPResponse
	rest, err := asn1.Unmarshal(data, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OCSP response: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after OCSP response")
	}
	return &resp, nil
}

// Basic decodes the BasicOCSPResponse carried by a successful response.
func (r *OCSPResponse) Basic() (*BasicOCSPResponse, error) {
	if ResponseStatus(r.Status) != StatusSuccessful {
		return nil, fmt.Errorf("response status is %s", ResponseStatus(r.Status))
	}
	if !r.ResponseBytes.ResponseType.Equal(OIDOcspBasic) {
		return nil, fmt.Errorf("unsupported response type: %s", r.ResponseBytes.ResponseType)
	}
	return ParseBasicResponse(r.ResponseBytes.Response)
}

// ParseBasicResponse parses a DER-encoded BasicOCSPResponse.
func ParseBasicResponse(data []byte) (*BasicOCSPResponse, error) {
	var basic BasicOCSPResponse
	rest, err := asn1.Unmarshal(data, &basic)
	if err != nil {
		return nil, fmt.Errorf("failed to parse basic OCSP response: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after basic OCSP response")
	}
	return &basic, nil
}

// ParseBasicFromResponse parses an OCSPResponse envelope and returns its basic response.
func ParseBasicFromResponse(data []byte) (*BasicOCSPResponse, error) {
	resp, err := ParseResponse(data)
	if err != nil {
		return nil, err
	}
	return resp.Basic()
}

// Marshal encodes the basic response to DER format.
func (b *BasicOCSPResponse) Marshal() ([]byte, error) {
	return asn1.Marshal(*b)
}

// MarshalResponse wraps the basic response in a successful OCSPResponse envelope.
//
// The signature is carried over unchanged; callers that altered the
// response data must re-sign it.
func (b *BasicOCSPResponse) MarshalResponse() ([]byte, error) {
	basicBytes, err := b.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal basic response: %w", err)
	}
	return asn1.Marshal(OCSPResponse{
		Status: asn1.Enumerated(StatusSuccessful),
		ResponseBytes: ResponseBytes{
			ResponseType: OIDOcspBasic,
			Response:     basicBytes,
		},
	})
}

// Nonce returns the decoded nonce carried in the response extensions, or nil.
func (b *BasicOCSPResponse) Nonce() []byte {
	return nonceFrom(b.TBSResponseData.ResponseExtensions)
}
