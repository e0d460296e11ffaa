package ocsp

import (
	"testing"
)

// FuzzParseRequest tests that parsing arbitrary OCSP request data doesn't panic.
func FuzzParseRequest(f *testing.F) {
	f.Add([]byte{0x30, 0x00})                   // Empty SEQUENCE
	f.Add([]byte{0x30, 0x03, 0x30, 0x01, 0x00}) // Nested SEQUENCE
	f.Add([]byte{0x30, 0x80})                   // Indefinite length
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})       // All 1s

	f.Fuzz(func(t *testing.T, data []byte) {
		req, err := ParseRequest(data)
		if err != nil {
			return
		}
		// a parsed request must tolerate extension access
		_ = CheckNonce(req, nil)
		for i := 0; i < RequestExts.Count(req); i++ {
			_, _ = RequestExts.GetTyped(req, req.TBSRequest.RequestExtensions[i].Id, i-1)
		}
	})
}

// FuzzParseResponse tests that parsing arbitrary OCSP response data doesn't panic.
func FuzzParseResponse(f *testing.F) {
	f.Add([]byte{0x30, 0x00})
	f.Add([]byte{0x30, 0x03, 0x0a, 0x01, 0x00}) // With responseStatus
	f.Add([]byte{0x30, 0x80})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		resp, err := ParseResponse(data)
		if err != nil {
			return
		}
		basic, err := resp.Basic()
		if err != nil {
			return
		}
		_ = basic.Nonce()
	})
}

// FuzzDecode checks that every decoded value that encodes again can be
// decoded once more.
func FuzzDecode(f *testing.F) {
	f.Add(uint8(0), []byte{0x04, 0x02, 0x01, 0x02})
	f.Add(uint8(1), []byte{0x30, 0x05, 0xa1, 0x03, 0x02, 0x01, 0x05})
	f.Add(uint8(2), []byte{0x30, 0x00})
	f.Add(uint8(3), []byte("\x18\x0f20240101000000Z"))
	f.Add(uint8(4), []byte{0x30, 0x02, 0x30, 0x00})
	f.Add(uint8(5), []byte{0x05, 0x00})

	ids := []string{"Nonce", "CrlID", "acceptableResponses", "archiveCutoff", "serviceLocator", "noCheck"}

	f.Fuzz(func(t *testing.T, which uint8, data []byte) {
		id, _ := LookupOID(ids[int(which)%len(ids)])
		v, err := Decode(id, data)
		if err != nil {
			return
		}
		der, err := Encode(id, v)
		if err != nil {
			// non-canonical input may decode to a value that does not encode
			return
		}
		if _, err := Decode(id, der); err != nil {
			t.Errorf("re-encoded value does not decode: %v", err)
		}
	})
}
