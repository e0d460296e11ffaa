package ocsp

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"reflect"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Value is the typed content of an extension.
//
// The set of implementations is closed: Nonce, CrlID, AcceptableResponses,
// ArchiveCutoff, ServiceLocator, NoCheck and Unknown. Unknown carries the
// raw DER of extensions without a registered codec so they still round-trip.
type Value interface {
	cryptobyte.MarshalingValue

	// ExtensionOID returns the OID the value belongs to, or nil for Unknown.
	ExtensionOID() asn1.ObjectIdentifier
}

type decodeFunc func(s *cryptobyte.String) (Value, error)

// decoders maps an extension OID to its value decoder.
var decoders = map[string]decodeFunc{
	OIDOcspNonce.String():          decodeNonce,
	OIDOcspCRL.String():            decodeCrlID,
	OIDOcspResponse.String():       decodeAcceptableResponses,
	OIDOcspArchiveCutoff.String():  decodeArchiveCutoff,
	OIDOcspServiceLocator.String(): decodeServiceLocator,
	OIDOcspNoCheck.String():        decodeNoCheck,
}

// HasCodec reports whether values under id are interpreted rather than kept as Unknown.
func HasCodec(id asn1.ObjectIdentifier) bool {
	_, ok := decoders[id.String()]
	return ok
}

// Encode produces the DER extension value for v stored under id.
func Encode(id asn1.ObjectIdentifier, v Value) ([]byte, error) {
	if v == nil {
		return nil, newError("encode", id, fmt.Errorf("%w: nil value", ErrEncoding))
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, newError("encode", id, fmt.Errorf("%w: nil %T", ErrEncoding, v))
	}
	if want := v.ExtensionOID(); want != nil && !want.Equal(id) {
		return nil, newError("encode", id, fmt.Errorf("%w: %T belongs to %s", ErrValueMismatch, v, OIDName(want)))
	}

	var b cryptobyte.Builder
	b.AddValue(v)
	der, err := b.Bytes()
	if err != nil {
		return nil, newError("encode", id, fmt.Errorf("%w: %w", ErrEncoding, err))
	}
	return der, nil
}

// Decode interprets the DER extension value der stored under id.
// OIDs without a codec decode to Unknown.
func Decode(id asn1.ObjectIdentifier, der []byte) (Value, error) {
	dec, ok := decoders[id.String()]
	if !ok {
		return Unknown{Raw: append([]byte(nil), der...)}, nil
	}

	s := cryptobyte.String(der)
	v, err := dec(&s)
	if err != nil {
		return nil, newError("decode", id, fmt.Errorf("%w: %w", ErrDecoding, err))
	}
	if !s.Empty() {
		return nil, newError("decode", id, fmt.Errorf("%w: trailing data", ErrDecoding))
	}
	return v, nil
}

// newExtension encodes v under id as a non-critical extension.
func newExtension(id asn1.ObjectIdentifier, v Value) (pkix.Extension, error) {
	der, err := Encode(id, v)
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{
		Id:       append(asn1.ObjectIdentifier(nil), id...),
		Critical: false,
		Value:    der,
	}, nil
}

// Nonce is the id-pkix-ocsp-nonce value.
//
//	Nonce ::= OCTET STRING
type Nonce []byte

func (Nonce) ExtensionOID() asn1.ObjectIdentifier { return OIDOcspNonce }

// Marshal implements cryptobyte.MarshalingValue.
func (n Nonce) Marshal(b *cryptobyte.Builder) error {
	b.AddASN1OctetString(n)
	return nil
}

func (n Nonce) String() string { return hex.EncodeToString(n) }

func decodeNonce(s *cryptobyte.String) (Value, error) {
	var out []byte
	if !s.ReadASN1Bytes(&out, cbasn1.OCTET_STRING) {
		return nil, fmt.Errorf("malformed nonce")
	}
	return Nonce(out), nil
}

// NoCheck is the id-pkix-ocsp-nocheck value carried by responder certificates.
//
//	ocsp-nocheck ::= NULL
type NoCheck struct{}

func (NoCheck) ExtensionOID() asn1.ObjectIdentifier { return OIDOcspNoCheck }

// Marshal implements cryptobyte.MarshalingValue.
func (NoCheck) Marshal(b *cryptobyte.Builder) error {
	b.AddASN1NULL()
	return nil
}

func (NoCheck) String() string { return "NULL" }

func decodeNoCheck(s *cryptobyte.String) (Value, error) {
	var null cryptobyte.String
	if !s.ReadASN1(&null, cbasn1.NULL) || !null.Empty() {
		return nil, fmt.Errorf("malformed noCheck")
	}
	return NoCheck{}, nil
}

// Unknown holds the raw value of an extension without a registered codec.
type Unknown struct {
	Raw []byte
}

func (Unknown) ExtensionOID() asn1.ObjectIdentifier { return nil }

// Marshal implements cryptobyte.MarshalingValue.
func (u Unknown) Marshal(b *cryptobyte.Builder) error {
	b.AddBytes(u.Raw)
	return nil
}

func (u Unknown) String() string { return hex.EncodeToString(u.Raw) }
