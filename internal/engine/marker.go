package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cedrickchee/bitcask/internal/kvserr"
)

// markerFile is the name of the file recording which engine a data
// directory was initialized with.
const markerFile = ".engine"

// CheckMarker reads the marker file in dir, if any, and compares it against
// want. If the directory has no marker yet, it writes one for want and
// returns nil: first open of an empty directory pins its engine. If a
// marker is present and disagrees with want, it returns an EngineMismatch
// error naming both engines.
func CheckMarker(dir string, want Name) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}

	path := filepath.Join(dir, markerFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return writeMarker(path, want)
		}
		return kvserr.Wrap(kvserr.IoError, err)
	}

	got := Name(strings.TrimSpace(string(data)))
	if got != want {
		return kvserr.New(kvserr.EngineMismatch,
			fmt.Sprintf("data directory was initialized with engine %q, cannot open as %q", got, want))
	}
	return nil
}

func writeMarker(path string, name Name) error {
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		return kvserr.Wrap(kvserr.IoError, err)
	}
	return nil
}
