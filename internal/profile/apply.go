package profile

import (
	"crypto/x509/pkix"
	"errors"
	"fmt"

	"github.com/remiblancher/ocspext/internal/ocsp"
)

// ApplyRequest stores the profile's extensions in req and returns the number
// of extensions added, replaced or deleted. Message-scoped entries go to the
// request extensions, single-scoped entries to every single request.
//
// Either every entry is applied or req is left as it was.
func (p *Profile) ApplyRequest(req *ocsp.OCSPRequest) (int, error) {
	if req == nil {
		return 0, NewProfileError(p.Name, errors.New("nil request"))
	}
	if p.Target != TargetRequest {
		return 0, NewProfileError(p.Name, fmt.Errorf("%w: %s profile applied to a request", ErrTargetMismatch, p.Target))
	}

	lists := []*[]pkix.Extension{&req.TBSRequest.RequestExtensions}
	singles := make([]*ocsp.Request, len(req.TBSRequest.RequestList))
	for i := range req.TBSRequest.RequestList {
		singles[i] = &req.TBSRequest.RequestList[i]
		lists = append(lists, &singles[i].SingleRequestExtensions)
	}

	return p.apply(lists, func(ext *Extension) (int, error) {
		if ext.Scope == ScopeMessage {
			return addEntry(ocsp.RequestExts, req, ext)
		}
		return addEach(ocsp.OneRequestExts, singles, ext)
	})
}

// ApplyResponse is ApplyRequest for a basic response. Single-scoped entries
// go to every single response.
func (p *Profile) ApplyResponse(resp *ocsp.BasicOCSPResponse) (int, error) {
	if resp == nil {
		return 0, NewProfileError(p.Name, errors.New("nil response"))
	}
	if p.Target != TargetResponse {
		return 0, NewProfileError(p.Name, fmt.Errorf("%w: %s profile applied to a response", ErrTargetMismatch, p.Target))
	}

	lists := []*[]pkix.Extension{&resp.TBSResponseData.ResponseExtensions}
	singles := make([]*ocsp.SingleResponse, len(resp.TBSResponseData.Responses))
	for i := range resp.TBSResponseData.Responses {
		singles[i] = &resp.TBSResponseData.Responses[i]
		lists = append(lists, &singles[i].SingleExtensions)
	}

	return p.apply(lists, func(ext *Extension) (int, error) {
		if ext.Scope == ScopeMessage {
			return addEntry(ocsp.BasicResponseExts, resp, ext)
		}
		return addEach(ocsp.SingleResponseExts, singles, ext)
	})
}

// apply runs add for every entry and restores lists on failure.
func (p *Profile) apply(lists []*[]pkix.Extension, add func(*Extension) (int, error)) (int, error) {
	saved := make([][]pkix.Extension, len(lists))
	for i, l := range lists {
		if *l != nil {
			saved[i] = append([]pkix.Extension{}, *l...)
		}
	}

	count := 0
	for i, ext := range p.Extensions {
		n, err := add(ext)
		if err != nil {
			for j, l := range lists {
				*l = saved[j]
			}
			return 0, NewProfileError(p.Name, fmt.Errorf("extensions[%d] (%s): %w", i, ext.Kind, err))
		}
		count += n
	}
	return count, nil
}

func addEach[M any](a ocsp.Extensions[M], ms []M, ext *Extension) (int, error) {
	count := 0
	for _, m := range ms {
		n, err := addEntry(a, m, ext)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

// addEntry stores one entry in m and reports whether m changed.
func addEntry[M any](a ocsp.Extensions[M], m M, ext *Extension) (int, error) {
	if ext.Policy == ocsp.AddKeepExisting && a.FindByID(m, ext.OID, -1) >= 0 {
		return 0, nil
	}
	v, err := ext.Value()
	if err != nil {
		return 0, err
	}
	if err := a.AddTyped(m, ext.OID, v, ext.Critical, ext.Policy); err != nil {
		return 0, err
	}
	return 1, nil
}
