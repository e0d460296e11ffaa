package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	// GenesisHash is the HashPrev of the first event in a chain.
	GenesisHash = "sha256:genesis"

	// HashPrefix is prepended to all hash values.
	HashPrefix = "sha256:"
)

// ErrChainBroken indicates a log whose hash chain does not verify.
var ErrChainBroken = errors.New("audit hash chain broken")

// FileWriter appends hash-chained events to a JSONL file.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	lastHash string
	path     string
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter opens path for appending. An existing log is continued
// from the hash of its last event.
func NewFileWriter(path string) (*FileWriter, error) {
	lastHash := GenesisHash
	if f, err := os.Open(path); err == nil {
		lastHash, err = lastHashFrom(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read last hash from existing log: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &FileWriter{file: file, lastHash: lastHash, path: path}, nil
}

// lastHashFrom returns the hash of the last non-blank line of r.
func lastHashFrom(r io.Reader) (string, error) {
	var last []byte
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := bytes.TrimSpace(scanner.Bytes()); len(line) > 0 {
			last = append(last[:0], line...)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if last == nil {
		return GenesisHash, nil
	}

	var event struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(last, &event); err != nil {
		return "", fmt.Errorf("failed to parse last event: %w", err)
	}
	if event.Hash == "" {
		return "", fmt.Errorf("last event has no hash")
	}
	return event.Hash, nil
}

// Write chains, appends and syncs one event.
func (w *FileWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("audit log %s is closed", w.path)
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	event.HashPrev = w.lastHash
	canonical, err := event.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	event.Hash = chainHash(canonical, w.lastHash)

	line, err := event.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	w.lastHash = event.Hash
	return nil
}

// Close syncs and closes the file. Closing twice is a no-op.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LastHash returns the hash of the last written event.
func (w *FileWriter) LastHash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastHash
}

// Path returns the file path of the audit log.
func (w *FileWriter) Path() string {
	return w.path
}

// chainHash computes SHA256(data || prevHash).
func chainHash(data []byte, prevHash string) string {
	h := sha256.New()
	_, _ = h.Write(data)
	_, _ = h.Write([]byte(prevHash))
	return HashPrefix + hex.EncodeToString(h.Sum(nil))
}

// VerifyChain checks the hash chain of the log at path and returns the
// number of events that verified before the first failure.
func VerifyChain(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	return verifyChain(f)
}

func verifyChain(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	prev := GenesisHash
	lineNum, valid := 0, 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return valid, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if event.HashPrev != prev {
			return valid, fmt.Errorf("%w: line %d: expected prev=%s, got prev=%s", ErrChainBroken, lineNum, prev, event.HashPrev)
		}
		canonical, err := event.CanonicalJSON()
		if err != nil {
			return valid, fmt.Errorf("line %d: failed to serialize: %w", lineNum, err)
		}
		if want := chainHash(canonical, event.HashPrev); event.Hash != want {
			return valid, fmt.Errorf("%w: line %d: expected hash=%s, got hash=%s", ErrChainBroken, lineNum, want, event.Hash)
		}

		prev = event.Hash
		valid++
	}
	if err := scanner.Err(); err != nil {
		return valid, fmt.Errorf("scan error: %w", err)
	}
	return valid, nil
}
