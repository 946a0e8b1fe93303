package entity

import (
	"testing"
	"time"
)

func TestCompareTimestamps(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	cases := []struct {
		name string
		a, b *time.Time
		want int
	}{
		{"both absent", nil, nil, 0},
		{"absent before present", nil, &early, -1},
		{"present after absent", &early, nil, 1},
		{"earlier", &early, &late, -1},
		{"later", &late, &early, 1},
		{"equal", &early, &early, 0},
	}
	for _, c := range cases {
		if got := CompareTimestamps(c.a, c.b); got != c.want {
			t.Fatalf("%s: got %d want %d", c.name, got, c.want)
		}
	}
}

func TestLaterTimestampCopies(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)

	got := LaterTimestamp(&early, &late)
	if got == nil || !got.Equal(late) {
		t.Fatalf("expected %v, got %v", late, got)
	}
	if got == &late {
		t.Fatalf("expected a copy, got the input pointer")
	}
	if LaterTimestamp(nil, nil) != nil {
		t.Fatalf("expected nil for two absent timestamps")
	}
}

func TestWordCloneIsDeep(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	w := &Word{ID: "w1", Headword: "run", Examples: []string{"a"}, Tags: []string{"verb"}, UpdatedAt: &ts}

	c := w.Clone()
	c.Examples[0] = "b"
	c.Tags[0] = "noun"
	*c.UpdatedAt = ts.Add(time.Hour)

	if w.Examples[0] != "a" || w.Tags[0] != "verb" || !w.UpdatedAt.Equal(ts) {
		t.Fatalf("clone shares state with original: %+v", w)
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" Editor "); !ok || r != RoleEditor {
		t.Fatalf("expected editor, got %q %v", r, ok)
	}
	if _, ok := ParseRole("admin"); ok {
		t.Fatalf("expected admin to be rejected")
	}
}
