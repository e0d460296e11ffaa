package profile

import (
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/remiblancher/ocspext/internal/ocsp"
)

// Target is the OCSP message kind a profile applies to.
type Target string

const (
	TargetRequest  Target = "request"
	TargetResponse Target = "response"
)

// Scope selects the extension list an entry is stored in.
type Scope string

const (
	// ScopeMessage is the request or basic response extension list.
	ScopeMessage Scope = "message"
	// ScopeSingle is every single request or single response of the message.
	ScopeSingle Scope = "single"
)

// Kind names a known extension type in a profile.
type Kind string

const (
	KindNonce               Kind = "nonce"
	KindCrlID               Kind = "crl-id"
	KindAcceptableResponses Kind = "acceptable-responses"
	KindArchiveCutoff       Kind = "archive-cutoff"
	KindServiceLocator      Kind = "service-locator"
	KindRaw                 Kind = "raw"
)

// kindRule fixes where a kind may be stored.
type kindRule struct {
	targets []Target // empty: any target
	scope   Scope    // default scope
	fixed   bool     // scope cannot be overridden
}

var kindRules = map[Kind]kindRule{
	KindNonce:               {scope: ScopeMessage, fixed: true},
	KindAcceptableResponses: {targets: []Target{TargetRequest}, scope: ScopeMessage, fixed: true},
	KindServiceLocator:      {targets: []Target{TargetRequest}, scope: ScopeSingle, fixed: true},
	KindCrlID:               {targets: []Target{TargetResponse}, scope: ScopeSingle, fixed: true},
	KindArchiveCutoff:       {targets: []Target{TargetResponse}, scope: ScopeSingle, fixed: true},
	KindRaw:                 {scope: ScopeMessage},
}

func (r kindRule) allows(t Target) bool {
	if len(r.targets) == 0 {
		return true
	}
	for _, want := range r.targets {
		if want == t {
			return true
		}
	}
	return false
}

// Profile describes the extensions to attach to one kind of OCSP message.
type Profile struct {
	Name        string
	Description string
	Target      Target
	Policy      ocsp.AddPolicy
	Extensions  []*Extension
}

// Extension is one resolved profile entry.
//
// Values are built and test-encoded at load time, except nonces which are
// generated on every application unless Nonce is set.
type Extension struct {
	Kind     Kind
	OID      asn1.ObjectIdentifier
	Critical bool
	Policy   ocsp.AddPolicy
	Scope    Scope

	// NonceLength is the generated nonce length; 0 means the default.
	NonceLength int
	// Nonce is a fixed nonce value.
	Nonce ocsp.Nonce

	value ocsp.Value
}

// Value returns the typed value to store, generating a nonce if needed.
func (e *Extension) Value() (ocsp.Value, error) {
	if e.Kind != KindNonce {
		return e.value, nil
	}
	if len(e.Nonce) > 0 {
		return append(ocsp.Nonce(nil), e.Nonce...), nil
	}
	return ocsp.NewNonce(e.NonceLength)
}

// profileYAML is the on-disk representation of a Profile.
type profileYAML struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Target      string          `yaml:"target"`
	Policy      string          `yaml:"policy"`
	Extensions  []extensionYAML `yaml:"extensions"`
}

type extensionYAML struct {
	Type     string `yaml:"type"`
	Critical bool   `yaml:"critical"`
	Policy   string `yaml:"policy"`
	Scope    string `yaml:"scope"`

	// nonce
	Length int    `yaml:"length"`
	Value  string `yaml:"value"` // hex, also used by raw

	// crl-id
	URL    string `yaml:"url"`
	Number string `yaml:"number"`
	Time   string `yaml:"time"` // also used by archive-cutoff

	// acceptable-responses
	Responses []string `yaml:"responses"`

	// service-locator
	Issuer string   `yaml:"issuer"`
	URLs   []string `yaml:"urls"`

	// raw
	OID string `yaml:"oid"`
}

// profileYAMLToProfile converts and validates the YAML representation.
func profileYAMLToProfile(py *profileYAML) (*Profile, error) {
	if strings.TrimSpace(py.Name) == "" {
		return nil, NewValidationError("name", "", "must not be empty")
	}

	p := &Profile{
		Name:        py.Name,
		Description: py.Description,
		Target:      Target(py.Target),
		Policy:      ocsp.AddReplace,
	}
	if p.Target != TargetRequest && p.Target != TargetResponse {
		return nil, NewValidationError("target", py.Target, "must be request or response")
	}
	if py.Policy != "" {
		policy, err := ocsp.ParseAddPolicy(py.Policy)
		if err != nil {
			return nil, NewValidationError("policy", py.Policy, "unknown add policy")
		}
		p.Policy = policy
	}
	if len(py.Extensions) == 0 {
		return nil, NewValidationError("extensions", "", "at least one extension is required")
	}

	for i := range py.Extensions {
		ext, err := p.resolveExtension(i, &py.Extensions[i])
		if err != nil {
			return nil, err
		}
		p.Extensions = append(p.Extensions, ext)
	}
	return p, nil
}

func (p *Profile) resolveExtension(i int, ey *extensionYAML) (*Extension, error) {
	field := func(name string) string { return fmt.Sprintf("extensions[%d].%s", i, name) }

	kind := Kind(ey.Type)
	rule, ok := kindRules[kind]
	if !ok {
		return nil, NewValidationError(field("type"), ey.Type, "unknown extension type")
	}
	if !rule.allows(p.Target) {
		return nil, NewValidationError(field("type"), ey.Type, fmt.Sprintf("not allowed in a %s profile", p.Target))
	}

	ext := &Extension{
		Kind:     kind,
		Critical: ey.Critical,
		Policy:   p.Policy,
		Scope:    rule.scope,
	}
	if ey.Policy != "" {
		policy, err := ocsp.ParseAddPolicy(ey.Policy)
		if err != nil {
			return nil, NewValidationError(field("policy"), ey.Policy, "unknown add policy")
		}
		ext.Policy = policy
	}
	if ey.Scope != "" {
		scope := Scope(ey.Scope)
		if scope != ScopeMessage && scope != ScopeSingle {
			return nil, NewValidationError(field("scope"), ey.Scope, "must be message or single")
		}
		if rule.fixed && scope != rule.scope {
			return nil, NewValidationError(field("scope"), ey.Scope, fmt.Sprintf("%s is always stored with scope %s", kind, rule.scope))
		}
		ext.Scope = scope
	}

	var err error
	switch kind {
	case KindNonce:
		ext.OID = ocsp.OIDOcspNonce
		err = resolveNonce(ext, ey, field)
	case KindCrlID:
		ext.OID = ocsp.OIDOcspCRL
		ext.value, err = resolveCrlID(ey, field)
	case KindAcceptableResponses:
		ext.OID = ocsp.OIDOcspResponse
		ext.value, err = resolveAcceptableResponses(ey, field)
	case KindArchiveCutoff:
		ext.OID = ocsp.OIDOcspArchiveCutoff
		ext.value, err = resolveArchiveCutoff(ey, field)
	case KindServiceLocator:
		ext.OID = ocsp.OIDOcspServiceLocator
		ext.value, err = resolveServiceLocator(ey, field)
	case KindRaw:
		ext.OID, ext.value, err = resolveRaw(ey, field)
	}
	if err != nil {
		return nil, err
	}

	if ext.value != nil {
		if _, err := ocsp.Encode(ext.OID, ext.value); err != nil {
			return nil, NewValidationError(field("type"), ey.Type, err.Error())
		}
	}
	return ext, nil
}

func resolveNonce(ext *Extension, ey *extensionYAML, field func(string) string) error {
	if ey.Length < 0 {
		return NewValidationError(field("length"), strconv.Itoa(ey.Length), "must not be negative")
	}
	ext.NonceLength = ey.Length
	if ey.Value == "" {
		return nil
	}
	if ey.Length != 0 {
		return NewValidationError(field("length"), strconv.Itoa(ey.Length), "cannot be combined with value")
	}
	val, err := hex.DecodeString(ey.Value)
	if err != nil || len(val) == 0 {
		return NewValidationError(field("value"), ey.Value, "must be non-empty hex")
	}
	ext.Nonce = val
	return nil
}

func resolveCrlID(ey *extensionYAML, field func(string) string) (ocsp.Value, error) {
	c := &ocsp.CrlID{URL: ey.URL}
	if ey.Number != "" {
		n, ok := new(big.Int).SetString(ey.Number, 10)
		if !ok || n.Sign() < 0 {
			return nil, NewValidationError(field("number"), ey.Number, "must be a non-negative decimal integer")
		}
		c.Number = n
	}
	if ey.Time != "" {
		t, err := ocsp.ParseGeneralizedTime(ey.Time)
		if err != nil {
			return nil, NewValidationError(field("time"), ey.Time, err.Error())
		}
		c.Time = t
	}
	if c.URL == "" && c.Number == nil && c.Time == "" {
		return nil, NewValidationError(field("type"), string(KindCrlID), "one of url, number or time is required")
	}
	return c, nil
}

func resolveAcceptableResponses(ey *extensionYAML, field func(string) string) (ocsp.Value, error) {
	if len(ey.Responses) == 0 {
		return nil, NewValidationError(field("responses"), "", "at least one response type is required")
	}
	a := make(ocsp.AcceptableResponses, 0, len(ey.Responses))
	for _, name := range ey.Responses {
		oid, err := ParseOID(name)
		if err != nil {
			return nil, NewValidationError(field("responses"), name, err.Error())
		}
		a = append(a, oid)
	}
	return a, nil
}

func resolveArchiveCutoff(ey *extensionYAML, field func(string) string) (ocsp.Value, error) {
	t, err := ocsp.ParseGeneralizedTime(ey.Time)
	if err != nil {
		return nil, NewValidationError(field("time"), ey.Time, err.Error())
	}
	return ocsp.ArchiveCutoff(t), nil
}

func resolveServiceLocator(ey *extensionYAML, field func(string) string) (ocsp.Value, error) {
	issuer, err := ParseDN(ey.Issuer)
	if err != nil {
		return nil, NewValidationError(field("issuer"), ey.Issuer, err.Error())
	}
	sl := &ocsp.ServiceLocator{Issuer: issuer}
	for _, u := range ey.URLs {
		sl.Locator = append(sl.Locator, ocsp.AccessDescription{
			Method: append(asn1.ObjectIdentifier(nil), ocsp.OIDPKIXOcsp...),
			URI:    u,
		})
	}
	return sl, nil
}

func resolveRaw(ey *extensionYAML, field func(string) string) (asn1.ObjectIdentifier, ocsp.Value, error) {
	oid, err := ParseOID(ey.OID)
	if err != nil {
		return nil, nil, NewValidationError(field("oid"), ey.OID, err.Error())
	}
	der, err := hex.DecodeString(ey.Value)
	if err != nil || len(der) == 0 {
		return nil, nil, NewValidationError(field("value"), ey.Value, "must be non-empty hex DER")
	}
	var elem asn1.RawValue
	if trailing, err := asn1.Unmarshal(der, &elem); err != nil || len(trailing) > 0 {
		return nil, nil, NewValidationError(field("value"), ey.Value, "must be a single DER element")
	}
	if ocsp.HasCodec(oid) {
		v, err := ocsp.Decode(oid, der)
		if err != nil {
			return nil, nil, NewValidationError(field("value"), ey.Value, err.Error())
		}
		return oid, v, nil
	}
	return oid, ocsp.Unknown{Raw: der}, nil
}

// ParseOID resolves a registered name or any dotted OID.
func ParseOID(s string) (asn1.ObjectIdentifier, error) {
	if oid, ok := ocsp.LookupOID(s); ok {
		return oid, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("unknown object identifier %q", s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("malformed object identifier %q", s)
		}
		oid[i] = n
	}
	if oid[0] > 2 || (oid[0] < 2 && oid[1] > 39) {
		return nil, fmt.Errorf("malformed object identifier %q", s)
	}
	return oid, nil
}

// Summary returns a one-line description per extension entry.
func (p *Profile) Summary() []string {
	lines := make([]string, 0, len(p.Extensions))
	for _, ext := range p.Extensions {
		desc := string(ext.Kind)
		switch {
		case ext.Kind == KindNonce && len(ext.Nonce) > 0:
			desc += " " + ext.Nonce.String()
		case ext.Kind == KindNonce:
			length := ext.NonceLength
			if length == 0 {
				length = ocsp.DefaultNonceLength
			}
			desc += fmt.Sprintf(" (%d random bytes)", length)
		default:
			if str, ok := ext.value.(fmt.Stringer); ok {
				desc += " " + str.String()
			}
		}
		lines = append(lines, fmt.Sprintf("%s [%s] scope=%s policy=%s critical=%t: %s",
			ocsp.OIDName(ext.OID), ext.OID, ext.Scope, ext.Policy, ext.Critical, desc))
	}
	return lines
}
