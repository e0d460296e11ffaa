package audit

import (
	"fmt"
	"sync"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
	enabled      bool
)

// Init installs w as the global audit writer. A nil w disables auditing.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}
	globalWriter = w
	enabled = true
	return nil
}

// InitFile installs a FileWriter for path. An empty path disables auditing.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}
	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	return Init(w)
}

// Close closes the global writer and disables auditing.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	enabled = false
	return err
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	return w.Write(event)
}

// MustLog is Log with an error suitable for failing the parent operation.
//
//	if err := audit.MustLog(event); err != nil {
//	    return err
//	}
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// LogNonceAdded records a nonce stored in a request or response.
// Only the nonce length is recorded.
func LogNonceAdded(msgType, path string, length int, success bool, reason string) error {
	event := NewEvent(EventNonceAdd, resultOf(success)).
		WithObject(Object{Type: msgType, Path: path}).
		WithContext(Context{NonceLength: length, Reason: reason})

	return MustLog(event)
}

// LogNonceChecked records the outcome of a nonce comparison.
// A mismatch is recorded as a failure.
func LogNonceChecked(requestPath, responsePath, status string, acceptable bool) error {
	event := NewEvent(EventNonceCheck, resultOf(acceptable)).
		WithObject(Object{Type: "response", Path: responsePath}).
		WithContext(Context{NonceStatus: status, Reason: "request=" + requestPath})

	return MustLog(event)
}

// LogNonceCopied records a nonce echoed from a request into a response.
func LogNonceCopied(requestPath, responsePath string, copied bool) error {
	reason := "request carries no nonce"
	if copied {
		reason = "request=" + requestPath
	}
	event := NewEvent(EventNonceCopy, ResultSuccess).
		WithObject(Object{Type: "response", Path: responsePath}).
		WithContext(Context{Reason: reason})

	return MustLog(event)
}

// LogExtensionBuilt records the construction of a standalone extension.
func LogExtensionBuilt(oid, name, path string, critical, success bool, reason string) error {
	event := NewEvent(EventExtBuild, resultOf(success)).
		WithObject(Object{Type: "extension", OID: oid, Name: name, Path: path}).
		WithContext(Context{Critical: critical, Reason: reason})

	return MustLog(event)
}

// LogExtensionsApplied records a profile applied to a message.
func LogExtensionsApplied(msgType, path, profile, policy string, count int, success bool, reason string) error {
	event := NewEvent(EventExtApply, resultOf(success)).
		WithObject(Object{Type: msgType, Path: path}).
		WithContext(Context{Profile: profile, Policy: policy, Count: count, Reason: reason})

	return MustLog(event)
}
