package kvlog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTruncatedRecord is returned by Decoder.Next when a record starts but the
// stream ends before it is complete: a length prefix with no body, or a
// short body. Recovery treats this the same way a clean end-of-file is
// treated: replay stops at the last fully-read record, and the engine is
// free to truncate the file back to that point on its next write.
var ErrTruncatedRecord = errors.New("kvlog: truncated trailing record")

// ErrMalformedRecord is returned by Decoder.Next when a record's bytes are
// all present but do not decode: invalid JSON or an unrecognized op. Unlike
// ErrTruncatedRecord, this indicates corruption rather than an in-progress
// write interrupted by a crash, and callers should surface it as such.
var ErrMalformedRecord = errors.New("kvlog: malformed record")

// lengthPrefixSize is the size, in bytes, of the big-endian length prefix
// that precedes every encoded record.
const lengthPrefixSize = 4

type wireCommand struct {
	Op    Op     `json:"op"`
	Key   string `json:"k"`
	Value string `json:"v,omitempty"`
}

// Encode serializes cmd as a length-prefixed JSON record: a 4-byte
// big-endian length followed by the JSON body. Records are not individually
// checksummed; integrity depends on the encoding's self-delimitation plus
// the length prefix, so a reader can always tell where a record ends.
func Encode(w io.Writer, cmd Command) error {
	body, err := json.Marshal(wireCommand{Op: cmd.Op, Key: cmd.Key, Value: cmd.Value})
	if err != nil {
		return fmt.Errorf("kvlog: marshal command: %w", err)
	}

	var header [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("kvlog: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("kvlog: write body: %w", err)
	}
	return nil
}

// Decoder reads a sequence of length-prefixed Command records from an
// underlying reader.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r in a Decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next reads the next Command from the stream.
//
// It returns io.EOF when the stream ends cleanly between records, and
// ErrTruncatedRecord when the stream ends partway through one. It returns
// ErrMalformedRecord when a record's bytes are fully present but will not
// decode — that is genuine corruption, not a crash-interrupted write.
func (d *Decoder) Next() (Command, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Command{}, io.EOF
		}
		return Command{}, fmt.Errorf("%w: %v", ErrTruncatedRecord, err)
	}

	length := binary.BigEndian.Uint32(header[:])
	body := make([]byte, length)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrTruncatedRecord, err)
	}

	var wc wireCommand
	if err := json.Unmarshal(body, &wc); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	switch wc.Op {
	case OpSet, OpRemove:
	default:
		return Command{}, fmt.Errorf("%w: unknown op %d", ErrMalformedRecord, wc.Op)
	}

	return Command{Op: wc.Op, Key: wc.Key, Value: wc.Value}, nil
}
