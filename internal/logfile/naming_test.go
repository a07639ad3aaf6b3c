package logfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSortedGens(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"3.log", "1.log", "2.log", "not-a-gen.log", "1.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}

	gens, err := SortedGens(dir)
	if err != nil {
		t.Fatalf("SortedGens: %v", err)
	}
	want := []uint64{1, 2, 3}
	if len(gens) != len(want) {
		t.Fatalf("gens = %v, want %v", gens, want)
	}
	for i, g := range want {
		if gens[i] != g {
			t.Fatalf("gens[%d] = %d, want %d", i, gens[i], g)
		}
	}
}

func TestSortedGens_MissingDir(t *testing.T) {
	gens, err := SortedGens(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("SortedGens: %v", err)
	}
	if len(gens) != 0 {
		t.Fatalf("gens = %v, want empty", gens)
	}
}

func TestNextGen(t *testing.T) {
	if got := NextGen(nil); got != 1 {
		t.Fatalf("NextGen(nil) = %d, want 1", got)
	}
	if got := NextGen([]uint64{1, 2, 5}); got != 6 {
		t.Fatalf("NextGen = %d, want 6", got)
	}
}

func TestPath(t *testing.T) {
	got := Path("/data", 7)
	want := filepath.Join("/data", "7.log")
	if got != want {
		t.Fatalf("Path = %q, want %q", got, want)
	}
}
