package app

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ReasonChanges lists the reasons a rescan gained and lost compared to the
// previous result for the same input.
type ReasonChanges struct {
	PreviousID    string   `json:"previousId"`
	PreviousScore int      `json:"previousScore"`
	Added         []string `json:"added,omitempty"`
	Removed       []string `json:"removed,omitempty"`
}

// Empty reports whether the reason lists are identical.
func (c ReasonChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// diffReasons runs a line diff over the two reason lists.
func diffReasons(prev, cur []string) (added, removed []string) {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(joinLines(prev), joinLines(cur))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added = append(added, splitLines(d.Text)...)
		case diffmatchpatch.DiffDelete:
			removed = append(removed, splitLines(d.Text)...)
		case diffmatchpatch.DiffEqual:
			continue
		}
	}
	return added, removed
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
