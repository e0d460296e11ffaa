package ocsp

import (
	"bytes"
	"crypto/rand"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"io"
)

// DefaultNonceLength is the nonce size generated when no length is given.
const DefaultNonceLength = 16

// randReader is the source of generated nonces.
var randReader io.Reader = rand.Reader

// NonceStatus is the outcome of comparing the nonces of a request and a response.
//
// Only NonceMismatch must always be rejected. Whether the other outcomes are
// acceptable depends on the deployment: a responder that does not support
// nonces yields NonceRequestOnly.
type NonceStatus int

const (
	NonceRequestOnly  NonceStatus = -1
	NonceMismatch     NonceStatus = 0
	NonceMatch        NonceStatus = 1
	NonceBothAbsent   NonceStatus = 2
	NonceResponseOnly NonceStatus = 3
)

// String returns a human-readable status string.
func (s NonceStatus) String() string {
	switch s {
	case NonceRequestOnly:
		return "requestOnly"
	case NonceMismatch:
		return "mismatch"
	case NonceMatch:
		return "match"
	case NonceBothAbsent:
		return "bothAbsent"
	case NonceResponseOnly:
		return "responseOnly"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Acceptable reports whether the outcome is anything other than NonceMismatch.
func (s NonceStatus) Acceptable() bool {
	return s != NonceMismatch
}

// Err returns ErrNonceMismatch for NonceMismatch and nil otherwise.
func (s NonceStatus) Err() error {
	if s == NonceMismatch {
		return ErrNonceMismatch
	}
	return nil
}

// AddNonce stores a nonce extension in exts, replacing any existing one.
//
// A non-empty val is used verbatim. Otherwise length random bytes are drawn
// from crypto/rand, DefaultNonceLength when length <= 0. A random source
// failure is returned as ErrRandomSource.
func AddNonce(exts *[]pkix.Extension, val []byte, length int) error {
	var nonce Nonce
	if len(val) > 0 {
		nonce = append(Nonce(nil), val...)
	} else {
		var err error
		if nonce, err = NewNonce(length); err != nil {
			return err
		}
	}
	return addTyped(exts, OIDOcspNonce, nonce, false, AddReplace)
}

// NewNonce draws length random bytes, DefaultNonceLength when length <= 0.
func NewNonce(length int) (Nonce, error) {
	if length <= 0 {
		length = DefaultNonceLength
	}
	nonce := make(Nonce, length)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, newError("nonce", OIDOcspNonce, fmt.Errorf("%w: %w", ErrRandomSource, err))
	}
	return nonce, nil
}

// RequestAddNonce adds a nonce to the request extensions. See AddNonce.
func RequestAddNonce(req *OCSPRequest, val []byte, length int) error {
	p, err := RequestExts.ptr("nonce", req)
	if err != nil {
		return err
	}
	return AddNonce(p, val, length)
}

// BasicAddNonce adds a nonce to the basic response extensions. See AddNonce.
func BasicAddNonce(resp *BasicOCSPResponse, val []byte, length int) error {
	p, err := BasicResponseExts.ptr("nonce", resp)
	if err != nil {
		return err
	}
	return AddNonce(p, val, length)
}

// CheckNonce compares the nonce of a request with the nonce of a response.
//
// The stored extension values are compared byte for byte without decoding,
// so two encodings of the same nonce compare as NonceMismatch.
func CheckNonce(req *OCSPRequest, resp *BasicOCSPResponse) NonceStatus {
	reqIdx := RequestExts.FindByID(req, OIDOcspNonce, -1)
	respIdx := BasicResponseExts.FindByID(resp, OIDOcspNonce, -1)

	switch {
	case reqIdx < 0 && respIdx < 0:
		return NonceBothAbsent
	case reqIdx >= 0 && respIdx < 0:
		return NonceRequestOnly
	case reqIdx < 0 && respIdx >= 0:
		return NonceResponseOnly
	}

	reqExt := RequestExts.list(req)[reqIdx]
	respExt := BasicResponseExts.list(resp)[respIdx]
	if !bytes.Equal(reqExt.Value, respExt.Value) {
		return NonceMismatch
	}
	return NonceMatch
}

// CopyNonce appends the request nonce extension, criticality included, to the
// response. It does nothing when the request carries no nonce.
func CopyNonce(resp *BasicOCSPResponse, req *OCSPRequest) error {
	idx := RequestExts.FindByID(req, OIDOcspNonce, -1)
	if idx < 0 {
		return nil
	}
	return BasicResponseExts.Add(resp, RequestExts.list(req)[idx], -1)
}

// nonceFrom returns the decoded nonce in exts. Values that are not an
// OCTET STRING are returned raw, as sent by older clients.
func nonceFrom(exts []pkix.Extension) []byte {
	i := findByID(exts, OIDOcspNonce, -1)
	if i < 0 {
		return nil
	}
	var nonce []byte
	if rest, err := asn1.Unmarshal(exts[i].Value, &nonce); err == nil && len(rest) == 0 {
		return nonce
	}
	return exts[i].Value
}
