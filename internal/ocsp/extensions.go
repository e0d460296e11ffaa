package ocsp

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
)

// AddPolicy selects how AddTyped treats an extension that is already present.
type AddPolicy int

const (
	// AddDefault fails with ErrExtensionExists if the OID is present.
	AddDefault AddPolicy = iota
	// AddAppend always appends, allowing duplicates.
	AddAppend
	// AddReplace replaces the first existing extension in place, or appends.
	AddReplace
	// AddReplaceExisting replaces in place and fails with ErrExtensionNotFound if absent.
	AddReplaceExisting
	// AddKeepExisting leaves an existing extension untouched, or appends.
	AddKeepExisting
	// AddDelete removes the first existing extension and fails with ErrExtensionNotFound if absent.
	AddDelete
)

// String returns the policy name.
func (p AddPolicy) String() string {
	switch p {
	case AddDefault:
		return "default"
	case AddAppend:
		return "append"
	case AddReplace:
		return "replace"
	case AddReplaceExisting:
		return "replace-existing"
	case AddKeepExisting:
		return "keep-existing"
	case AddDelete:
		return "delete"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParseAddPolicy returns the policy named s, as printed by AddPolicy.String.
func ParseAddPolicy(s string) (AddPolicy, error) {
	for p := AddDefault; p <= AddDelete; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown add policy %q", s)
}

// TypedExtension is a decoded extension together with its position.
type TypedExtension struct {
	Index    int
	Critical bool
	Value    Value
}

// Extensions gives uniform access to one extension list of an OCSP message type.
//
// M is the message type and field returns a pointer to its extension list,
// or nil when the message itself is nil. Extensions holds no state and
// does no locking; callers serialize access to a given message.
type Extensions[M any] struct {
	name  string
	field func(M) *[]pkix.Extension
}

// NewExtensions returns an adapter reaching the extension list through field.
func NewExtensions[M any](name string, field func(M) *[]pkix.Extension) Extensions[M] {
	return Extensions[M]{name: name, field: field}
}

// Adapters for the four OCSP message extension lists.
var (
	RequestExts = NewExtensions("request", func(r *OCSPRequest) *[]pkix.Extension {
		if r == nil {
			return nil
		}
		return &r.TBSRequest.RequestExtensions
	})

	OneRequestExts = NewExtensions("single request", func(r *Request) *[]pkix.Extension {
		if r == nil {
			return nil
		}
		return &r.SingleRequestExtensions
	})

	BasicResponseExts = NewExtensions("basic response", func(r *BasicOCSPResponse) *[]pkix.Extension {
		if r == nil {
			return nil
		}
		return &r.TBSResponseData.ResponseExtensions
	})

	SingleResponseExts = NewExtensions("single response", func(r *SingleResponse) *[]pkix.Extension {
		if r == nil {
			return nil
		}
		return &r.SingleExtensions
	})
)

// Name returns the message kind the adapter serves.
func (e Extensions[M]) Name() string { return e.name }

func (e Extensions[M]) list(m M) []pkix.Extension {
	if p := e.field(m); p != nil {
		return *p
	}
	return nil
}

func (e Extensions[M]) ptr(op string, m M) (*[]pkix.Extension, error) {
	p := e.field(m)
	if p == nil {
		return nil, newError(op, nil, fmt.Errorf("%w: %s", ErrNilMessage, e.name))
	}
	return p, nil
}

// Count returns the number of extensions present.
func (e Extensions[M]) Count(m M) int {
	return len(e.list(m))
}

// FindByID returns the index of the first extension with OID id located
// strictly after position after, or -1. Pass after = -1 to search from the start.
func (e Extensions[M]) FindByID(m M, id asn1.ObjectIdentifier, after int) int {
	return findByID(e.list(m), id, after)
}

// FindByName is FindByID with the OID resolved through LookupOID.
// An unknown name returns -1.
func (e Extensions[M]) FindByName(m M, name string, after int) int {
	id, ok := LookupOID(name)
	if !ok {
		return -1
	}
	return findByID(e.list(m), id, after)
}

// FindByCritical returns the index of the first extension whose criticality
// equals critical located strictly after position after, or -1.
func (e Extensions[M]) FindByCritical(m M, critical bool, after int) int {
	return findByCritical(e.list(m), critical, after)
}

// Get returns a reference to the extension at index i.
func (e Extensions[M]) Get(m M, i int) (*pkix.Extension, error) {
	return getExt(e.list(m), i)
}

// Delete removes the extension at index i and returns it.
func (e Extensions[M]) Delete(m M, i int) (pkix.Extension, error) {
	p, err := e.ptr("delete", m)
	if err != nil {
		return pkix.Extension{}, err
	}
	return deleteExt(p, i)
}

// Add inserts a copy of ext at loc, or appends it when loc is -1.
func (e Extensions[M]) Add(m M, ext pkix.Extension, loc int) error {
	p, err := e.ptr("add", m)
	if err != nil {
		return err
	}
	return insertExt(p, ext, loc)
}

// GetTyped decodes the first extension with OID id located after position after.
// It returns nil and no error when no such extension exists.
func (e Extensions[M]) GetTyped(m M, id asn1.ObjectIdentifier, after int) (*TypedExtension, error) {
	return getTyped(e.list(m), id, after)
}

// AddTyped encodes v and stores it under id according to policy.
// Nothing is modified when encoding fails.
func (e Extensions[M]) AddTyped(m M, id asn1.ObjectIdentifier, v Value, critical bool, policy AddPolicy) error {
	p, err := e.ptr("add", m)
	if err != nil {
		return err
	}
	return addTyped(p, id, v, critical, policy)
}

func findByID(exts []pkix.Extension, id asn1.ObjectIdentifier, after int) int {
	if after < -1 {
		after = -1
	}
	for i := after + 1; i < len(exts); i++ {
		if exts[i].Id.Equal(id) {
			return i
		}
	}
	return -1
}

func findByCritical(exts []pkix.Extension, critical bool, after int) int {
	if after < -1 {
		after = -1
	}
	for i := after + 1; i < len(exts); i++ {
		if exts[i].Critical == critical {
			return i
		}
	}
	return -1
}

func getExt(exts []pkix.Extension, i int) (*pkix.Extension, error) {
	if i < 0 || i >= len(exts) {
		return nil, newError("get", nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(exts)))
	}
	return &exts[i], nil
}

func deleteExt(exts *[]pkix.Extension, i int) (pkix.Extension, error) {
	list := *exts
	if i < 0 || i >= len(list) {
		return pkix.Extension{}, newError("delete", nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(list)))
	}
	removed := list[i]
	copy(list[i:], list[i+1:])
	list[len(list)-1] = pkix.Extension{}
	*exts = list[:len(list)-1]
	return removed, nil
}

func insertExt(exts *[]pkix.Extension, ext pkix.Extension, loc int) error {
	list := *exts
	if loc == -1 {
		loc = len(list)
	}
	if loc < 0 || loc > len(list) {
		return newError("add", ext.Id, fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, loc, len(list)))
	}
	list = append(list, pkix.Extension{})
	copy(list[loc+1:], list[loc:])
	list[loc] = cloneExtension(ext)
	*exts = list
	return nil
}

func cloneExtension(ext pkix.Extension) pkix.Extension {
	return pkix.Extension{
		Id:       append(asn1.ObjectIdentifier(nil), ext.Id...),
		Critical: ext.Critical,
		Value:    append([]byte(nil), ext.Value...),
	}
}

func getTyped(exts []pkix.Extension, id asn1.ObjectIdentifier, after int) (*TypedExtension, error) {
	i := findByID(exts, id, after)
	if i < 0 {
		return nil, nil
	}
	v, err := Decode(id, exts[i].Value)
	if err != nil {
		return nil, err
	}
	return &TypedExtension{Index: i, Critical: exts[i].Critical, Value: v}, nil
}

func addTyped(exts *[]pkix.Extension, id asn1.ObjectIdentifier, v Value, critical bool, policy AddPolicy) error {
	if policy < AddDefault || policy > AddDelete {
		return newError("add", id, fmt.Errorf("unsupported add policy %s", policy))
	}

	existing := -1
	if policy != AddAppend {
		existing = findByID(*exts, id, -1)
	}

	switch {
	case existing >= 0 && policy == AddKeepExisting:
		return nil
	case existing >= 0 && policy == AddDefault:
		return newError("add", id, ErrExtensionExists)
	case existing >= 0 && policy == AddDelete:
		_, err := deleteExt(exts, existing)
		return err
	case existing < 0 && (policy == AddReplaceExisting || policy == AddDelete):
		return newError("add", id, ErrExtensionNotFound)
	}

	der, err := Encode(id, v)
	if err != nil {
		return err
	}
	ext := pkix.Extension{
		Id:       append(asn1.ObjectIdentifier(nil), id...),
		Critical: critical,
		Value:    der,
	}

	if existing >= 0 {
		(*exts)[existing] = ext
		return nil
	}
	*exts = append(*exts, ext)
	return nil
}
