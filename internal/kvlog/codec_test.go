package kvlog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	var buf bytes.Buffer

	cmds := []Command{
		NewSet("key1", "value1"),
		NewSet("key2", "value2"),
		NewRemove("key1"),
	}
	for _, c := range cmds {
		if err := Encode(&buf, c); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i, want := range cmds {
		got, err := dec.Next()
		if err != nil {
			t.Fatalf("Next(%d): %v", i, err)
		}
		if got != want {
			t.Fatalf("Next(%d) = %+v, want %+v", i, got, want)
		}
	}

	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("final Next = %v, want io.EOF", err)
	}
}

func TestDecode_TruncatedHeader(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{0x00, 0x00}))
	_, err := dec.Next()
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("Next = %v, want ErrTruncatedRecord", err)
	}
}

func TestDecode_TruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, NewSet("k", "v")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	full := buf.Bytes()
	truncated := full[:len(full)-2]

	dec := NewDecoder(bytes.NewReader(truncated))
	_, err := dec.Next()
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("Next = %v, want ErrTruncatedRecord", err)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	body := []byte("not json")
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	dec := NewDecoder(&buf)
	_, err := dec.Next()
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("Next = %v, want ErrMalformedRecord", err)
	}
}

func TestDecode_MultipleThenCleanEOF(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, NewSet("a", "1")); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec := NewDecoder(&buf)
	if _, err := dec.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v, want io.EOF", err)
	}
}

func TestRemove_OmitsValueOnWire(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, NewRemove("k")); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec := NewDecoder(&buf)
	got, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.Op != OpRemove || got.Key != "k" || got.Value != "" {
		t.Fatalf("got %+v, want Remove(k)", got)
	}
}
