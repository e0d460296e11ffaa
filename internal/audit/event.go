// Package audit records security-relevant OCSP extension operations.
//
// Audit logs are separate from command output and are meant for:
//   - Replay protection evidence (nonces sent, compared and echoed)
//   - Traceability of which extensions were attached to which message
//   - Tamper evidence via cryptographic hash chaining
//
// Key principles:
//   - Audit failure = operation failure
//   - Nonce values are never logged, only their length
//   - All timestamps in UTC
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType represents the category of audit event.
type EventType string

const (
	// Nonce protocol events
	EventNonceAdd   EventType = "OCSP_NONCE_ADD"
	EventNonceCheck EventType = "OCSP_NONCE_CHECK"
	EventNonceCopy  EventType = "OCSP_NONCE_COPY"

	// Extension events
	EventExtBuild EventType = "OCSP_EXT_BUILD"
	EventExtApply EventType = "OCSP_EXT_APPLY"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"`           // "user", "system", "service"
	ID   string `json:"id"`             // username or service identifier
	Host string `json:"host,omitempty"` // hostname where action occurred
}

// Object represents the message or extension acted upon.
type Object struct {
	Type string `json:"type"`           // "request", "response", "extension"
	OID  string `json:"oid,omitempty"`  // extension OID in dotted form
	Name string `json:"name,omitempty"` // extension short name
	Path string `json:"path,omitempty"` // input or output file
}

// Context provides additional details about the operation.
type Context struct {
	Profile     string `json:"profile,omitempty"`      // extension profile used
	Policy      string `json:"policy,omitempty"`       // add policy
	NonceStatus string `json:"nonce_status,omitempty"` // outcome of a nonce check
	NonceLength int    `json:"nonce_length,omitempty"` // nonce size in bytes
	Count       int    `json:"count,omitempty"`        // number of extensions applied
	Critical    bool   `json:"critical,omitempty"`
	Reason      string `json:"reason,omitempty"` // failure reason
}

// Event represents a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"` // SHA-256 hash of previous event
	Hash      string    `json:"hash"`      // SHA-256 hash of this event
}

// NewEvent creates a new audit event with current timestamp and actor info.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: "user",
			ID:   currentUser(),
			Host: hostname,
		},
		Result: result,
	}
}

func currentUser() string {
	for _, env := range []string{"USER", "USERNAME"} {
		if u := os.Getenv(env); u != "" {
			return u
		}
	}
	return "unknown"
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	switch {
	case e.EventType == "":
		return fmt.Errorf("event_type is required")
	case e.Timestamp == "":
		return fmt.Errorf("timestamp is required")
	case e.Actor.Type == "" || e.Actor.ID == "":
		return fmt.Errorf("actor type and id are required")
	case e.Result == "":
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event as JSON without the Hash field.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type hashed struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}
	return json.Marshal(hashed{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	})
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

func resultOf(success bool) Result {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
