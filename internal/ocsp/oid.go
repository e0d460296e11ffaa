package ocsp

import "encoding/asn1"

// OCSP OIDs per RFC 6960
var (
	// id-ad-ocsp OBJECT IDENTIFIER ::= { iso(1) identified-organization(3)
	//   dod(6) internet(1) security(5) mechanisms(5) pkix(7) ad(48) 1 }
	// Also the accessMethod of an OCSP responder AccessDescription.
	OIDPKIXOcsp = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}

	// id-ad-caIssuers OBJECT IDENTIFIER ::= { id-ad 2 }
	OIDCAIssuers = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}

	// id-pkix-ocsp-basic OBJECT IDENTIFIER ::= { id-pkix-ocsp 1 }
	OIDOcspBasic = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 1}

	// id-pkix-ocsp-nonce OBJECT IDENTIFIER ::= { id-pkix-ocsp 2 }
	OIDOcspNonce = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 2}

	// id-pkix-ocsp-crl OBJECT IDENTIFIER ::= { id-pkix-ocsp 3 }
	OIDOcspCRL = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 3}

	// id-pkix-ocsp-response OBJECT IDENTIFIER ::= { id-pkix-ocsp 4 }
	OIDOcspResponse = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 4}

	// id-pkix-ocsp-nocheck OBJECT IDENTIFIER ::= { id-pkix-ocsp 5 }
	OIDOcspNoCheck = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 5}

	// id-pkix-ocsp-archive-cutoff OBJECT IDENTIFIER ::= { id-pkix-ocsp 6 }
	OIDOcspArchiveCutoff = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 6}

	// id-pkix-ocsp-service-locator OBJECT IDENTIFIER ::= { id-pkix-ocsp 7 }
	OIDOcspServiceLocator = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 7}

	// id-pkix-ocsp-extended-revoke OBJECT IDENTIFIER ::= { id-pkix-ocsp 9 }
	OIDOcspExtendedRevoke = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 9}
)

// Hash algorithm OIDs
var (
	OIDSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// oidEntry names an OID the way OpenSSL-style tooling refers to it.
type oidEntry struct {
	oid       asn1.ObjectIdentifier
	shortName string
	longName  string
}

var oidTable = []oidEntry{
	{OIDPKIXOcsp, "OCSP", "OCSP"},
	{OIDCAIssuers, "caIssuers", "CA Issuers"},
	{OIDOcspBasic, "basicOCSPResponse", "Basic OCSP Response"},
	{OIDOcspNonce, "Nonce", "OCSP Nonce"},
	{OIDOcspCRL, "CrlID", "OCSP CRL ID"},
	{OIDOcspResponse, "acceptableResponses", "Acceptable OCSP Responses"},
	{OIDOcspNoCheck, "noCheck", "OCSP No Check"},
	{OIDOcspArchiveCutoff, "archiveCutoff", "OCSP Archive Cutoff"},
	{OIDOcspServiceLocator, "serviceLocator", "OCSP Service Locator"},
	{OIDOcspExtendedRevoke, "extendedRevoke", "OCSP Extended Revoke"},
	{OIDSHA1, "SHA1", "sha1"},
	{OIDSHA256, "SHA256", "sha256"},
	{OIDSHA384, "SHA384", "sha384"},
	{OIDSHA512, "SHA512", "sha512"},
}

var (
	oidByName = make(map[string]asn1.ObjectIdentifier)
	nameByOID = make(map[string]string)
)

func init() {
	for _, e := range oidTable {
		oidByName[e.shortName] = e.oid
		oidByName[e.longName] = e.oid
		oidByName[e.oid.String()] = e.oid
		nameByOID[e.oid.String()] = e.shortName
	}
}

// LookupOID resolves a symbolic name to a registered OID.
// Short names, long names and the dotted form of a registered OID are accepted.
// Lookup is case-sensitive.
func LookupOID(name string) (asn1.ObjectIdentifier, bool) {
	oid, ok := oidByName[name]
	if !ok {
		return nil, false
	}
	return append(asn1.ObjectIdentifier(nil), oid...), true
}

// OIDName returns the short name of a registered OID, or its dotted form.
func OIDName(oid asn1.ObjectIdentifier) string {
	if name, ok := nameByOID[oid.String()]; ok {
		return name
	}
	return oid.String()
}
