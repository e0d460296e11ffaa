package ocsp

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// GeneralName [6] uniformResourceIdentifier IA5String
var tagGeneralNameURI = cbasn1.Tag(6).ContextSpecific()

// AccessDescription is one locator entry of a ServiceLocator.
// Only the uniformResourceIdentifier form of GeneralName is supported.
//
//	AccessDescription ::= SEQUENCE {
//	    accessMethod          OBJECT IDENTIFIER,
//	    accessLocation        GeneralName }
type AccessDescription struct {
	Method asn1.ObjectIdentifier
	URI    string
}

// ServiceLocator routes a request to the authoritative responder (RFC 6960 §4.4.6).
//
//	ServiceLocator ::= SEQUENCE {
//	    issuer    Name,
//	    locator   AuthorityInfoAccessSyntax OPTIONAL }
type ServiceLocator struct {
	Issuer  pkix.RDNSequence
	Locator []AccessDescription
}

func (*ServiceLocator) ExtensionOID() asn1.ObjectIdentifier { return OIDOcspServiceLocator }

// Marshal implements cryptobyte.MarshalingValue.
func (sl *ServiceLocator) Marshal(b *cryptobyte.Builder) error {
	issuer := sl.Issuer
	if issuer == nil {
		issuer = pkix.RDNSequence{}
	}
	issuerDER, err := asn1.Marshal(issuer)
	if err != nil {
		return fmt.Errorf("issuer: %w", err)
	}
	for i, ad := range sl.Locator {
		if err := checkIA5(ad.URI); err != nil {
			return fmt.Errorf("locator %d: %w", i, err)
		}
	}

	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(issuerDER)
		if len(sl.Locator) == 0 {
			return
		}
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			for _, ad := range sl.Locator {
				b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(ad.Method)
					b.AddASN1(tagGeneralNameURI, func(b *cryptobyte.Builder) {
						b.AddBytes([]byte(ad.URI))
					})
				})
			}
		})
	})
	return nil
}

func (sl *ServiceLocator) String() string {
	var sb strings.Builder
	sb.WriteString("issuer: ")
	sb.WriteString(textRDNSequence(sl.Issuer).String())
	for _, ad := range sl.Locator {
		fmt.Fprintf(&sb, ", %s - URI:%s", OIDName(ad.Method), ad.URI)
	}
	return sb.String()
}

// IssuerName returns the issuer as a pkix.Name. Attribute values held as
// character-string RawValues are converted to text.
func (sl *ServiceLocator) IssuerName() pkix.Name {
	rdns := textRDNSequence(sl.Issuer)
	var name pkix.Name
	name.FillFromRDNSequence(&rdns)
	return name
}

// readName reads a DER Name. Attribute values are kept as asn1.RawValue so
// that their string type survives re-encoding.
func readName(s *cryptobyte.String) (pkix.RDNSequence, error) {
	var name cryptobyte.String
	if !s.ReadASN1(&name, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("malformed issuer name")
	}
	rdns := pkix.RDNSequence{}
	for !name.Empty() {
		var set cryptobyte.String
		if !name.ReadASN1(&set, cbasn1.SET) {
			return nil, fmt.Errorf("malformed issuer RDN")
		}
		var rdn pkix.RelativeDistinguishedNameSET
		for !set.Empty() {
			var atv, value cryptobyte.String
			var typ asn1.ObjectIdentifier
			var tag cbasn1.Tag
			if !set.ReadASN1(&atv, cbasn1.SEQUENCE) ||
				!atv.ReadASN1ObjectIdentifier(&typ) ||
				!atv.ReadAnyASN1(&value, &tag) ||
				!atv.Empty() {
				return nil, fmt.Errorf("malformed issuer attribute")
			}
			rdn = append(rdn, pkix.AttributeTypeAndValue{
				Type: typ,
				Value: asn1.RawValue{
					Class:      int(tag >> 6),
					Tag:        int(tag & 0x1f),
					IsCompound: tag&0x20 != 0,
					Bytes:      append([]byte(nil), value...),
				},
			})
		}
		rdns = append(rdns, rdn)
	}
	return rdns, nil
}

// textRDNSequence copies rdns, turning universal character-string RawValues
// into Go strings.
func textRDNSequence(rdns pkix.RDNSequence) pkix.RDNSequence {
	out := copyRDNSequence(rdns)
	for _, rdn := range out {
		for i, atv := range rdn {
			rv, ok := atv.Value.(asn1.RawValue)
			if !ok || rv.Class != asn1.ClassUniversal {
				continue
			}
			switch rv.Tag {
			case asn1.TagUTF8String, asn1.TagPrintableString, asn1.TagIA5String, asn1.TagT61String:
				rdn[i].Value = string(rv.Bytes)
			}
		}
	}
	return out
}

func decodeServiceLocator(s *cryptobyte.String) (Value, error) {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("malformed ServiceLocator")
	}

	issuer, err := readName(&seq)
	if err != nil {
		return nil, err
	}
	sl := &ServiceLocator{Issuer: issuer}

	if seq.Empty() {
		return sl, nil
	}

	var locator cryptobyte.String
	if !seq.ReadASN1(&locator, cbasn1.SEQUENCE) || !seq.Empty() {
		return nil, fmt.Errorf("malformed locator")
	}
	for !locator.Empty() {
		var adSeq, uri cryptobyte.String
		var ad AccessDescription
		if !locator.ReadASN1(&adSeq, cbasn1.SEQUENCE) || !adSeq.ReadASN1ObjectIdentifier(&ad.Method) {
			return nil, fmt.Errorf("malformed access description")
		}
		if !adSeq.ReadASN1(&uri, tagGeneralNameURI) || !adSeq.Empty() {
			return nil, fmt.Errorf("unsupported access location: only URI names are supported")
		}
		ad.URI = string(uri)
		sl.Locator = append(sl.Locator, ad)
	}
	return sl, nil
}

// NewServiceLocator builds a non-critical service-locator extension.
// The issuer is copied; each URL becomes an OCSP-responder access description.
// An empty urls list leaves the locator out.
func NewServiceLocator(issuer pkix.RDNSequence, urls []string) (pkix.Extension, error) {
	sl := &ServiceLocator{Issuer: copyRDNSequence(issuer)}
	for _, u := range urls {
		sl.Locator = append(sl.Locator, AccessDescription{
			Method: append(asn1.ObjectIdentifier(nil), OIDPKIXOcsp...),
			URI:    u,
		})
	}
	return newExtension(OIDOcspServiceLocator, sl)
}

func copyRDNSequence(in pkix.RDNSequence) pkix.RDNSequence {
	if in == nil {
		return nil
	}
	out := make(pkix.RDNSequence, len(in))
	for i, rdn := range in {
		out[i] = make(pkix.RelativeDistinguishedNameSET, len(rdn))
		for j, atv := range rdn {
			value := atv.Value
			if rv, ok := value.(asn1.RawValue); ok {
				rv.Bytes = append([]byte(nil), rv.Bytes...)
				rv.FullBytes = append([]byte(nil), rv.FullBytes...)
				value = rv
			}
			out[i][j] = pkix.AttributeTypeAndValue{
				Type:  append(asn1.ObjectIdentifier(nil), atv.Type...),
				Value: value,
			}
		}
	}
	return out
}
