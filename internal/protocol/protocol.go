// Package protocol defines the wire request/response types exchanged
// between client and server, and the length-prefixed JSON framing they
// travel in — the same framing convention internal/kvlog uses for the log.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// OpKind discriminates a Request's variant.
type OpKind string

const (
	OpGet    OpKind = "get"
	OpSet    OpKind = "set"
	OpRemove OpKind = "remove"
)

// Request is the tagged union a client sends: Set{Key,Value}, Get{Key}, or
// Remove{Key}.
type Request struct {
	Op    OpKind `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// NewGetRequest builds a Get request.
func NewGetRequest(key string) Request { return Request{Op: OpGet, Key: key} }

// NewSetRequest builds a Set request.
func NewSetRequest(key, value string) Request { return Request{Op: OpSet, Key: key, Value: value} }

// NewRemoveRequest builds a Remove request.
func NewRemoveRequest(key string) Request { return Request{Op: OpRemove, Key: key} }

// GetResponse answers a Get request: either the value was found (Found is
// true and Value holds it), it was not (Found is false), or the engine
// failed (Err is non-empty, ErrKind classifies it per kvserr.Kind).
type GetResponse struct {
	Found   bool   `json:"found"`
	Value   string `json:"value,omitempty"`
	Err     string `json:"err,omitempty"`
	ErrKind string `json:"err_kind,omitempty"`
}

// SetResponse answers a Set request.
type SetResponse struct {
	Err     string `json:"err,omitempty"`
	ErrKind string `json:"err_kind,omitempty"`
}

// RemoveResponse answers a Remove request.
type RemoveResponse struct {
	Err     string `json:"err,omitempty"`
	ErrKind string `json:"err_kind,omitempty"`
}

// Response is the envelope a connection actually writes: it tags which of
// the three response shapes Body holds, since a single connection may
// interleave different request kinds across its lifetime.
type Response struct {
	Op   OpKind          `json:"op"`
	Body json.RawMessage `json:"body"`
}

const lengthPrefixSize = 4

// WriteFrame writes v as a length-prefixed JSON frame to w.
func WriteFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: marshal frame: %w", err)
	}

	var header [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("protocol: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("protocol: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame from r into v.
func ReadFrame(r io.Reader, v any) error {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}

	length := binary.BigEndian.Uint32(header[:])
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("protocol: read frame body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("protocol: unmarshal frame: %w", err)
	}
	return nil
}

// WriteResponse wraps a typed response body in a Response envelope and
// writes it as a length-prefixed JSON frame.
func WriteResponse(w io.Writer, op OpKind, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("protocol: marshal response body: %w", err)
	}
	return WriteFrame(w, Response{Op: op, Body: raw})
}
