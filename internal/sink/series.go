package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

var recordingPattern = regexp.MustCompile(`^recording(\d+)\.wav$`)

// Series hands out recording{N}.wav names in a directory. N never goes
// back, even when earlier files are deleted.
type Series struct {
	mu     sync.Mutex
	dir    string
	next   uint64
	seeded bool
}

func NewSeries(dir string) *Series {
	return &Series{dir: dir}
}

// Next returns the path of the next recording. The first call starts
// past the highest recording already in the directory.
func (s *Series) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		next, err := nextFree(s.dir)
		if err != nil {
			return "", err
		}
		s.next = next
		s.seeded = true
	}

	name := fmt.Sprintf("recording%d.wav", s.next)
	s.next++
	return filepath.Join(s.dir, name), nil
}

func nextFree(dir string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var next uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := recordingPattern.FindStringSubmatch(e.Name())
		if len(match) < 2 {
			continue
		}
		n, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}
