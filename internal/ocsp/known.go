package ocsp

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// AcceptableResponses lists the response types a client understands.
//
//	AcceptableResponses ::= SEQUENCE OF OBJECT IDENTIFIER
type AcceptableResponses []asn1.ObjectIdentifier

func (AcceptableResponses) ExtensionOID() asn1.ObjectIdentifier { return OIDOcspResponse }

// Marshal implements cryptobyte.MarshalingValue.
func (a AcceptableResponses) Marshal(b *cryptobyte.Builder) error {
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, oid := range a {
			b.AddASN1ObjectIdentifier(oid)
		}
	})
	return nil
}

func (a AcceptableResponses) String() string {
	names := make([]string, len(a))
	for i, oid := range a {
		names[i] = OIDName(oid)
	}
	return strings.Join(names, ", ")
}

func decodeAcceptableResponses(s *cryptobyte.String) (Value, error) {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("malformed AcceptableResponses")
	}
	a := AcceptableResponses{}
	for !seq.Empty() {
		var oid asn1.ObjectIdentifier
		if !seq.ReadASN1ObjectIdentifier(&oid) {
			return nil, fmt.Errorf("malformed response type OID")
		}
		a = append(a, oid)
	}
	return a, nil
}

// NewAcceptableResponses builds a non-critical acceptable-responses extension.
// Each name is resolved with LookupOID; names that do not resolve are skipped.
func NewAcceptableResponses(names []string) (pkix.Extension, error) {
	a := AcceptableResponses{}
	for _, name := range names {
		if oid, ok := LookupOID(name); ok {
			a = append(a, oid)
		}
	}
	return newExtension(OIDOcspResponse, a)
}

// ArchiveCutoff is the archive cutoff date of a responder (RFC 6960 §4.4.4).
//
//	ArchiveCutoff ::= GeneralizedTime
type ArchiveCutoff GeneralizedTime

func (ArchiveCutoff) ExtensionOID() asn1.ObjectIdentifier { return OIDOcspArchiveCutoff }

// Marshal implements cryptobyte.MarshalingValue.
func (a ArchiveCutoff) Marshal(b *cryptobyte.Builder) error {
	if err := checkGeneralizedTime(string(a)); err != nil {
		return err
	}
	addGeneralizedTime(b, GeneralizedTime(a))
	return nil
}

func (a ArchiveCutoff) String() string {
	t, err := GeneralizedTime(a).Time()
	if err != nil {
		return string(a)
	}
	return fmt.Sprintf("%s (%s)", string(a), t.UTC().Format(time.RFC3339))
}

func decodeArchiveCutoff(s *cryptobyte.String) (Value, error) {
	t, err := readGeneralizedTime(s)
	if err != nil {
		return nil, err
	}
	return ArchiveCutoff(t), nil
}

// NewArchiveCutoff builds a non-critical archive-cutoff extension.
func NewArchiveCutoff(t string) (pkix.Extension, error) {
	return newExtension(OIDOcspArchiveCutoff, ArchiveCutoff(t))
}
