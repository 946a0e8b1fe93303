package mapping

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

// jsonRoundTrip mimics what a document backend hands back after storage.
func jsonRoundTrip(t *testing.T, data map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestWordDocumentSurvivesStorage(t *testing.T) {
	ts := time.Date(2025, 5, 1, 12, 30, 0, 123456789, time.UTC)
	in := &entity.Word{
		ID:         "w1",
		Headword:   "serendipity",
		Definition: "happy accident",
		Phonetic:   "/ˌserənˈdɪpɪti/",
		Language:   entity.LanguageEnglish,
		Examples:   []string{"pure serendipity"},
		Tags:       []string{"noun", "rare"},
		Favorite:   true,
		Difficulty: 4,
		UpdatedAt:  &ts,
		IsSynced:   true,
	}

	data := jsonRoundTrip(t, ToWordDocument(in))
	if _, ok := data["isSynced"]; ok {
		t.Fatalf("sync state must not be written remotely")
	}

	got, err := FromWordDocument(repository.Document{ID: "w1", Path: "users/a@b.c/words/w1", Data: data})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Difficulty != 4 || !got.Favorite || got.Headword != in.Headword || got.Language != entity.LanguageEnglish {
		t.Fatalf("unexpected word: %+v", got)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(ts) {
		t.Fatalf("timestamp lost precision: %v", got.UpdatedAt)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "rare" || got.IsSynced {
		t.Fatalf("unexpected tags or sync flag: %+v", got)
	}
}

func TestFromWordDocumentRejectsMalformed(t *testing.T) {
	_, err := FromWordDocument(repository.Document{ID: "w1", Path: "p", Data: map[string]any{
		FieldHeadword:   "run",
		FieldDifficulty: map[string]any{"x": 1},
	}})
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected malformed error, got %v", err)
	}

	_, err = FromWordDocument(repository.Document{ID: "w2", Path: "p", Data: map[string]any{}})
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected missing headword to be rejected, got %v", err)
	}
}

func TestWordDocumentWithoutTimestamp(t *testing.T) {
	got, err := FromWordDocument(repository.Document{ID: "w1", Data: map[string]any{FieldHeadword: "go"}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UpdatedAt != nil {
		t.Fatalf("expected absent timestamp, got %v", got.UpdatedAt)
	}
	if got.Examples == nil || got.Tags == nil {
		t.Fatalf("expected empty lists, got %+v", got)
	}
}

func TestSharedWordDocumentMaps(t *testing.T) {
	in := &entity.SharedWord{
		Word:         entity.Word{ID: "s1", Headword: "hola", Language: entity.LanguageSpanish},
		DictionaryID: "d1",
		AddedByEmail: "Ana@Example.com",
		Likes:        map[string]bool{"ana@example.com": true, "bo@example.com": false},
		Difficulties: map[string]int{"ana@example.com": 3},
	}
	data := jsonRoundTrip(t, ToSharedWordDocument(in))

	got, err := FromSharedWordDocument("d1", repository.Document{ID: "s1", Data: data})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AddedByEmail != "ana@example.com" {
		t.Fatalf("expected normalized email, got %q", got.AddedByEmail)
	}
	if got.LikeCount() != 1 || got.Difficulties["ana@example.com"] != 3 {
		t.Fatalf("unexpected collaborative state: %+v", got)
	}
}

func TestCollaboratorDocumentFallsBackToID(t *testing.T) {
	c, err := FromCollaboratorDocument(repository.Document{ID: "x@y.z", Data: map[string]any{FieldRole: "superuser"}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Email != "x@y.z" || c.Role != entity.RoleViewer {
		t.Fatalf("unexpected collaborator: %+v", c)
	}
}
