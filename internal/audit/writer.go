package audit

// Writer is the destination of audit events.
//
// Implementations must fail the write rather than drop an event, set the
// hash chain (HashPrev, Hash) and persist the event before returning.
type Writer interface {
	Write(event *Event) error
	Close() error

	// LastHash returns the hash of the last written event, or GenesisHash.
	LastHash() string
}

// NopWriter discards all events. It is installed while auditing is disabled.
type NopWriter struct{}

var _ Writer = NopWriter{}

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }
