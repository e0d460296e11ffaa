package profile

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"
)

// ASN.1 string type tags for DN encoding.
const (
	asnTagPrintableString = 19
	asnTagIA5String       = 22
	asnTagUTF8String      = 12
)

// OIDs for DN attributes (RFC 5280).
var (
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidSerialNumber       = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	oidProvince           = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidStreetAddress      = asn1.ObjectIdentifier{2, 5, 4, 9}
	oidPostalCode         = asn1.ObjectIdentifier{2, 5, 4, 17}
	oidEmailAddress       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
)

// attributeOIDs maps lower-cased attribute names to OIDs.
var attributeOIDs = map[string]asn1.ObjectIdentifier{
	"c":            oidCountry,
	"country":      oidCountry,
	"o":            oidOrganization,
	"organization": oidOrganization,
	"ou":           oidOrganizationalUnit,
	"cn":           oidCommonName,
	"commonname":   oidCommonName,
	"serialnumber": oidSerialNumber,
	"l":            oidLocality,
	"locality":     oidLocality,
	"st":           oidProvince,
	"state":        oidProvince,
	"province":     oidProvince,
	"street":       oidStreetAddress,
	"postalcode":   oidPostalCode,
	"email":        oidEmailAddress,
	"emailaddress": oidEmailAddress,
}

// ParseDN parses a comma-separated distinguished name such as
// "CN=OCSP Responder,O=Example,C=FR" into an RDNSequence, one RDN per
// attribute in the order written. A backslash escapes the next character.
//
// Country is encoded as PrintableString and email as IA5String (RFC 5280);
// all other attributes are UTF8String.
func ParseDN(s string) (pkix.RDNSequence, error) {
	parts, err := splitDN(s)
	if err != nil {
		return nil, err
	}

	rdns := make(pkix.RDNSequence, 0, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("%w: attribute %q is not key=value", ErrInvalidDN, part)
		}
		oid, ok := attributeOIDs[strings.ToLower(key)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown attribute %q", ErrInvalidDN, key)
		}
		raw, err := marshalDNString(oid, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDN, key, err)
		}
		rdns = append(rdns, pkix.RelativeDistinguishedNameSET{
			{Type: oid, Value: raw},
		})
	}
	return rdns, nil
}

// splitDN splits on unescaped commas and removes escapes.
func splitDN(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidDN)
	}

	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 == len(s) {
				return nil, fmt.Errorf("%w: trailing escape", ErrInvalidDN)
			}
			i++
			cur.WriteByte(s[i])
		case ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String()), nil
}

func marshalDNString(oid asn1.ObjectIdentifier, value string) (asn1.RawValue, error) {
	switch {
	case oid.Equal(oidCountry):
		if !IsPrintableString(value) {
			return asn1.RawValue{}, fmt.Errorf("value %q contains characters not allowed in PrintableString", value)
		}
		return asn1.RawValue{Tag: asnTagPrintableString, Class: asn1.ClassUniversal, Bytes: []byte(value)}, nil
	case oid.Equal(oidEmailAddress):
		if !IsIA5String(value) {
			return asn1.RawValue{}, fmt.Errorf("value %q contains non-ASCII characters not allowed in IA5String", value)
		}
		return asn1.RawValue{Tag: asnTagIA5String, Class: asn1.ClassUniversal, Bytes: []byte(value)}, nil
	default:
		return asn1.RawValue{Tag: asnTagUTF8String, Class: asn1.ClassUniversal, Bytes: []byte(value)}, nil
	}
}

// IsPrintableString checks if a string contains only PrintableString characters.
// PrintableString allows: A-Za-z0-9 '()+,-./:=? and space.
func IsPrintableString(s string) bool {
	for _, r := range s {
		if !isPrintableChar(r) {
			return false
		}
	}
	return true
}

func isPrintableChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case ' ', '\'', '(', ')', '+', ',', '-', '.', '/', ':', '=', '?':
		return true
	}
	return false
}

// IsIA5String checks if a string contains only IA5String (ASCII 7-bit) characters.
func IsIA5String(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
