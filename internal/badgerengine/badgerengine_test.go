package badgerengine

import (
	"testing"
	"time"

	"github.com/cedrickchee/bitcask/internal/kvserr"
)

func mustOpen(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), WithGCInterval(time.Hour))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestSetGet(t *testing.T) {
	e := mustOpen(t)

	if err := e.Set("foo", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := e.Get("foo")
	if err != nil || !ok || value != "bar" {
		t.Fatalf("Get = %q, %v, %v, want bar, true, nil", value, ok, err)
	}
}

func TestGet_MissingKey(t *testing.T) {
	e := mustOpen(t)

	_, ok, err := e.Get("missing")
	if err != nil || ok {
		t.Fatalf("Get(missing) = _, %v, %v, want false, nil", ok, err)
	}
}

func TestOverwrite(t *testing.T) {
	e := mustOpen(t)

	if err := e.Set("k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e.Set("k", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := e.Get("k")
	if err != nil || !ok || value != "v2" {
		t.Fatalf("Get = %q, %v, %v, want v2, true, nil", value, ok, err)
	}
}

func TestRemove(t *testing.T) {
	e := mustOpen(t)

	if err := e.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e.Remove("k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	_, ok, err := e.Get("k")
	if err != nil || ok {
		t.Fatalf("Get after remove = _, %v, %v, want false, nil", ok, err)
	}
}

func TestRemove_Missing(t *testing.T) {
	e := mustOpen(t)

	err := e.Remove("missing")
	if !kvserr.Is(err, kvserr.KeyNotFound) {
		t.Fatalf("Remove(missing) = %v, want KeyNotFound", err)
	}
}

func TestRecoverAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir, WithGCInterval(time.Hour))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := e.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(dir, WithGCInterval(time.Hour))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	value, ok, err := e2.Get("k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("Get after reopen = %q, %v, %v, want v, true, nil", value, ok, err)
	}
}
