package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultNoteName = "default_note.txt"

// Layout is the dated notes directory:
//
//	<root>/Notes/<YYYY-MM-DD>_Notes/[<class>/]default_note.txt
//
// Recordings are siblings of the note.
type Layout struct {
	Root  string
	Class string
	Date  time.Time
}

// NewLayout builds a layout for the given day. A bare drive letter as
// root ("e") becomes "E:/".
func NewLayout(root, class string, date time.Time) Layout {
	root = strings.TrimSpace(root)
	if len(root) == 1 && isLetter(root[0]) {
		root = strings.ToUpper(root) + ":/"
	}
	return Layout{
		Root:  root,
		Class: strings.TrimSpace(class),
		Date:  date,
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Configured reports whether a notes root was set.
func (l Layout) Configured() bool {
	return l.Root != ""
}

func (l Layout) Dir() string {
	dir := filepath.Join(l.Root, "Notes", l.Date.Format("2006-01-02")+"_Notes")
	if l.Class != "" {
		dir = filepath.Join(dir, l.Class)
	}
	return dir
}

// NotePath is the day's text note, next to the recordings.
func (l Layout) NotePath() string {
	return filepath.Join(l.Dir(), defaultNoteName)
}

// Ensure creates the notes directory.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}
	return nil
}
