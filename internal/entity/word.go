package entity

import (
	"strings"
	"time"
)

// Word is a single vocabulary entry owned by one local record and mirrored
// as a document in the owner's private backup collection.
type Word struct {
	ID         string
	Headword   string
	Definition string
	Phonetic   string
	Language   Language
	Examples   []string
	Tags       []string
	Favorite   bool
	Difficulty int
	// UpdatedAt is nil for entries that have never been stamped. A nil
	// timestamp compares before any concrete time (see CompareTimestamps).
	UpdatedAt *time.Time
	IsSynced  bool
}

// Clone returns a deep copy so callers can mutate the copy independently.
func (w *Word) Clone() *Word {
	if w == nil {
		return nil
	}
	out := *w
	if w.Examples != nil {
		out.Examples = append([]string(nil), w.Examples...)
	}
	if w.Tags != nil {
		out.Tags = append([]string(nil), w.Tags...)
	}
	if w.UpdatedAt != nil {
		ts := *w.UpdatedAt
		out.UpdatedAt = &ts
	}
	return &out
}

// Normalize trims text fields and stamps UpdatedAt with now.
func (w *Word) Normalize(now time.Time) {
	w.ID = strings.TrimSpace(w.ID)
	w.Headword = strings.TrimSpace(w.Headword)
	w.Definition = strings.TrimSpace(w.Definition)
	w.Phonetic = strings.TrimSpace(w.Phonetic)
	w.Language = ParseLanguage(string(w.Language))
	if w.Examples == nil {
		w.Examples = []string{}
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	ts := now.UTC()
	w.UpdatedAt = &ts
}

// Validate checks the minimum fields required before a word is written.
func (w *Word) Validate() error {
	if w == nil || strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.Headword) == "" {
		return ErrInvalidInput
	}
	return nil
}

// CompareTimestamps orders two optional timestamps. Absence is minimal:
// nil < any time, and nil == nil.
func CompareTimestamps(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}

// LaterTimestamp returns a copy of the later of two optional timestamps.
func LaterTimestamp(a, b *time.Time) *time.Time {
	later := a
	if CompareTimestamps(a, b) < 0 {
		later = b
	}
	if later == nil {
		return nil
	}
	ts := *later
	return &ts
}
