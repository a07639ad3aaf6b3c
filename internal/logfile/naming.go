package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Extension is the suffix every log file carries.
const Extension = ".log"

// Path returns the path of the log file for generation gen within dir.
func Path(dir string, gen uint64) string {
	return filepath.Join(dir, strconv.FormatUint(gen, 10)+Extension)
}

// SortedGens returns the ascending generation numbers of log files present
// in dir. Entries that are not "<uint>.log" are ignored.
func SortedGens(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var gens []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		gen, ok := parseGen(e.Name())
		if !ok {
			continue
		}
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

func parseGen(name string) (uint64, bool) {
	if !strings.HasSuffix(name, Extension) {
		return 0, false
	}
	stem := strings.TrimSuffix(name, Extension)
	gen, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// NextGen returns the generation a writer should start on: one past the
// highest generation found, or 1 if the directory holds no log files yet.
func NextGen(gens []uint64) uint64 {
	if len(gens) == 0 {
		return 1
	}
	return gens[len(gens)-1] + 1
}

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("logfile: create dir: %w", err)
	}
	return nil
}
