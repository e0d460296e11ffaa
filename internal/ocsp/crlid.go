package ocsp

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	tagCrlURL  = cbasn1.Tag(0).ContextSpecific().Constructed()
	tagCrlNum  = cbasn1.Tag(1).ContextSpecific().Constructed()
	tagCrlTime = cbasn1.Tag(2).ContextSpecific().Constructed()
)

// CrlID identifies the CRL a responder consulted (RFC 6960 §4.4.2).
//
//	CrlID ::= SEQUENCE {
//	    crlUrl               [0]     EXPLICIT IA5String OPTIONAL,
//	    crlNum               [1]     EXPLICIT INTEGER OPTIONAL,
//	    crlTime              [2]     EXPLICIT GeneralizedTime OPTIONAL }
//
// Zero fields (empty URL, nil Number, empty Time) are omitted.
type CrlID struct {
	URL    string
	Number *big.Int
	Time   GeneralizedTime
}

func (*CrlID) ExtensionOID() asn1.ObjectIdentifier { return OIDOcspCRL }

// Marshal implements cryptobyte.MarshalingValue.
func (c *CrlID) Marshal(b *cryptobyte.Builder) error {
	if err := checkIA5(c.URL); err != nil {
		return fmt.Errorf("crlUrl: %w", err)
	}
	if c.Time != "" {
		if err := checkGeneralizedTime(string(c.Time)); err != nil {
			return fmt.Errorf("crlTime: %w", err)
		}
	}

	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		if c.URL != "" {
			b.AddASN1(tagCrlURL, func(b *cryptobyte.Builder) {
				addIA5String(b, c.URL)
			})
		}
		if c.Number != nil {
			b.AddASN1(tagCrlNum, func(b *cryptobyte.Builder) {
				b.AddASN1BigInt(c.Number)
			})
		}
		if c.Time != "" {
			b.AddASN1(tagCrlTime, func(b *cryptobyte.Builder) {
				addGeneralizedTime(b, c.Time)
			})
		}
	})
	return nil
}

func (c *CrlID) String() string {
	var parts []string
	if c.URL != "" {
		parts = append(parts, "crlUrl: "+c.URL)
	}
	if c.Number != nil {
		parts = append(parts, "crlNum: "+c.Number.String())
	}
	if c.Time != "" {
		parts = append(parts, "crlTime: "+string(c.Time))
	}
	if len(parts) == 0 {
		return "<empty>"
	}
	return strings.Join(parts, ", ")
}

func decodeCrlID(s *cryptobyte.String) (Value, error) {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("malformed CrlID")
	}

	c := &CrlID{}
	var field cryptobyte.String
	var present bool

	if !seq.ReadOptionalASN1(&field, &present, tagCrlURL) {
		return nil, fmt.Errorf("malformed crlUrl")
	}
	if present {
		var url cryptobyte.String
		if !field.ReadASN1(&url, cbasn1.IA5String) || !field.Empty() {
			return nil, fmt.Errorf("malformed crlUrl")
		}
		c.URL = string(url)
	}

	if !seq.ReadOptionalASN1(&field, &present, tagCrlNum) {
		return nil, fmt.Errorf("malformed crlNum")
	}
	if present {
		c.Number = new(big.Int)
		if !field.ReadASN1Integer(c.Number) || !field.Empty() {
			return nil, fmt.Errorf("malformed crlNum")
		}
	}

	if !seq.ReadOptionalASN1(&field, &present, tagCrlTime) {
		return nil, fmt.Errorf("malformed crlTime")
	}
	if present {
		t, err := readGeneralizedTime(&field)
		if err != nil || !field.Empty() {
			return nil, fmt.Errorf("malformed crlTime: %v", err)
		}
		c.Time = t
	}

	if !seq.Empty() {
		return nil, fmt.Errorf("trailing data in CrlID")
	}
	return c, nil
}

// NewCrlID builds a non-critical CRL-ID extension.
// An empty url, nil number or empty t leaves the corresponding field out;
// t must be a valid generalized time when given.
func NewCrlID(url string, number *big.Int, t string) (pkix.Extension, error) {
	c := &CrlID{URL: url, Time: GeneralizedTime(t)}
	if number != nil {
		c.Number = new(big.Int).Set(number)
	}
	return newExtension(OIDOcspCRL, c)
}

func checkIA5(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return fmt.Errorf("non-IA5 character at offset %d", i)
		}
	}
	return nil
}

func addIA5String(b *cryptobyte.Builder, s string) {
	b.AddASN1(cbasn1.IA5String, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(s))
	})
}

func addGeneralizedTime(b *cryptobyte.Builder, t GeneralizedTime) {
	b.AddASN1(cbasn1.GeneralizedTime, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(t))
	})
}

func readGeneralizedTime(s *cryptobyte.String) (GeneralizedTime, error) {
	var raw cryptobyte.String
	if !s.ReadASN1(&raw, cbasn1.GeneralizedTime) {
		return "", fmt.Errorf("expected GeneralizedTime")
	}
	return ParseGeneralizedTime(string(raw))
}
