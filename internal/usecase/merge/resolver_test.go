package merge

import (
	"reflect"
	"testing"
	"time"

	"github.com/eslsoft/vocsync/internal/entity"
)

func at(sec int) *time.Time {
	t := time.Date(2025, 1, 1, 0, 0, sec, 0, time.UTC)
	return &t
}

func sample() *entity.Word {
	return &entity.Word{
		ID:         "w1",
		Headword:   "serendipity",
		Definition: "happy accident",
		Phonetic:   "/ser/",
		Language:   entity.LanguageEnglish,
		Examples:   []string{"by serendipity"},
		Tags:       []string{"noun"},
		Difficulty: 3,
		UpdatedAt:  at(10),
	}
}

func TestMergeTagSemantics(t *testing.T) {
	existing := &entity.Word{ID: "w", Tags: []string{"A", "C"}, UpdatedAt: at(1)}
	remote := &entity.Word{ID: "w", Tags: []string{"A", "B"}, UpdatedAt: at(2)}

	if !Merge(existing, remote) {
		t.Fatalf("expected merge to report a change")
	}
	if !reflect.DeepEqual(existing.Tags, []string{"A", "B"}) {
		t.Fatalf("expected [A B], got %v", existing.Tags)
	}
	if !existing.UpdatedAt.Equal(*at(2)) || !existing.IsSynced {
		t.Fatalf("unexpected sync state: %+v", existing)
	}
}

func TestMergeIgnoresOlderRemote(t *testing.T) {
	existing := sample()
	before := existing.Clone()
	remote := sample()
	remote.Headword = "other"
	remote.Tags = nil
	remote.UpdatedAt = at(5)

	if Merge(existing, remote) {
		t.Fatalf("older remote must not change the entry")
	}
	if !reflect.DeepEqual(existing, before) {
		t.Fatalf("entry changed:\nwant %#v\ngot  %#v", before, existing)
	}
}

func TestMergeAbsentRemoteTimestampIsOldest(t *testing.T) {
	existing := sample()
	remote := sample()
	remote.Definition = "changed"
	remote.UpdatedAt = nil

	if Merge(existing, remote) || existing.Definition != "happy accident" {
		t.Fatalf("remote without timestamp must not override a stamped entry")
	}

	unstamped := sample()
	unstamped.UpdatedAt = nil
	if !Merge(unstamped, remote) || unstamped.Definition != "changed" || unstamped.UpdatedAt != nil {
		t.Fatalf("two absent timestamps compare equal and merge: %+v", unstamped)
	}
}

func TestMergeRoundTripPreservesFields(t *testing.T) {
	local := sample()
	local.Favorite = true
	local.Examples = []string{"a", "b"}
	local.Tags = []string{"x", "y"}

	downloaded := local.Clone()
	later := at(20)
	downloaded.UpdatedAt = later

	merged := local.Clone()
	Merge(merged, downloaded)

	expected := local.Clone()
	expected.UpdatedAt = later
	expected.IsSynced = true
	if !reflect.DeepEqual(merged, expected) {
		t.Fatalf("round trip changed fields:\nwant %#v\ngot  %#v", expected, merged)
	}
}

func TestMergeExamplesUnion(t *testing.T) {
	existing := sample()
	existing.Examples = []string{"one", "two"}
	remote := sample()
	remote.UpdatedAt = at(11)
	remote.Examples = []string{"three", "one", "four", "three"}

	Merge(existing, remote)
	want := []string{"one", "two", "three", "four"}
	if !reflect.DeepEqual(existing.Examples, want) {
		t.Fatalf("want %v got %v", want, existing.Examples)
	}
}

func TestMergeCopiesScalarsAndIsIdempotent(t *testing.T) {
	existing := sample()
	remote := sample()
	remote.UpdatedAt = at(12)
	remote.Headword = "Serendipity"
	remote.Language = entity.LanguageFrench
	remote.Favorite = true
	remote.Difficulty = 1

	if !Merge(existing, remote) {
		t.Fatalf("expected change")
	}
	if existing.Headword != "Serendipity" || existing.Language != entity.LanguageFrench || !existing.Favorite || existing.Difficulty != 1 {
		t.Fatalf("scalars not copied: %+v", existing)
	}
	if Merge(existing, remote) {
		t.Fatalf("second merge of the same remote must be a no-op")
	}
}

func TestMergeNeverDecreasesTimestamp(t *testing.T) {
	existing := sample()
	remote := sample()
	remote.UpdatedAt = at(10)
	Merge(existing, remote)
	if !existing.UpdatedAt.Equal(*at(10)) {
		t.Fatalf("timestamp moved: %v", existing.UpdatedAt)
	}
	if existing.UpdatedAt == remote.UpdatedAt {
		t.Fatalf("merged entry must not alias the remote timestamp")
	}
}
