package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cedrickchee/bitcask/internal/kvserr"
)

func TestCheckMarker_FirstOpenPinsEngine(t *testing.T) {
	dir := t.TempDir()

	if err := CheckMarker(dir, KVS); err != nil {
		t.Fatalf("CheckMarker on empty dir: %v", err)
	}

	data, err := readMarkerForTest(dir)
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if Name(data) != KVS {
		t.Fatalf("marker content = %q, want %q", data, KVS)
	}
}

func TestCheckMarker_MatchingEngine(t *testing.T) {
	dir := t.TempDir()
	if err := CheckMarker(dir, Sled); err != nil {
		t.Fatalf("first CheckMarker: %v", err)
	}
	if err := CheckMarker(dir, Sled); err != nil {
		t.Fatalf("second CheckMarker with matching engine: %v", err)
	}
}

func TestCheckMarker_Mismatch(t *testing.T) {
	dir := t.TempDir()
	if err := CheckMarker(dir, KVS); err != nil {
		t.Fatalf("first CheckMarker: %v", err)
	}

	err := CheckMarker(dir, Sled)
	if !kvserr.Is(err, kvserr.EngineMismatch) {
		t.Fatalf("CheckMarker with mismatched engine = %v, want EngineMismatch", err)
	}
}

func readMarkerForTest(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, markerFile))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
