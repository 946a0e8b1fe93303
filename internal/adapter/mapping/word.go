package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

// ErrMalformedDocument marks a remote document that cannot be decoded.
var ErrMalformedDocument = errors.New("malformed document")

// Remote field names shared by private backup and shared word documents.
const (
	FieldID         = "id"
	FieldHeadword   = "headword"
	FieldDefinition = "definition"
	FieldPhonetic   = "phonetic"
	FieldLanguage   = "language"
	FieldExamples   = "examples"
	FieldTags       = "tags"
	FieldFavorite   = "favorite"
	FieldDifficulty = "difficulty"
	FieldUpdatedAt  = "updatedAt"
)

// ToWordDocument renders the full field set of a word. Sync state is local
// only and never leaves the device.
func ToWordDocument(in *entity.Word) map[string]any {
	out := map[string]any{
		FieldID:         in.ID,
		FieldHeadword:   in.Headword,
		FieldDefinition: in.Definition,
		FieldPhonetic:   in.Phonetic,
		FieldLanguage:   in.Language.Code(),
		FieldExamples:   lo.Map(in.Examples, func(s string, _ int) any { return s }),
		FieldTags:       lo.Map(in.Tags, func(s string, _ int) any { return s }),
		FieldFavorite:   in.Favorite,
		FieldDifficulty: in.Difficulty,
	}
	if in.UpdatedAt != nil {
		out[FieldUpdatedAt] = formatTime(*in.UpdatedAt)
	}
	return out
}

// FromWordDocument decodes a word document. The document id wins over the
// id field when both are present.
func FromWordDocument(doc repository.Document) (*entity.Word, error) {
	r := &fieldReader{data: doc.Data}
	word := readWord(r)
	if id := strings.TrimSpace(doc.ID); id != "" {
		word.ID = id
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrMalformedDocument, doc.Path, r.err)
	}
	if word.ID == "" || word.Headword == "" {
		return nil, fmt.Errorf("%w %s: id and headword are required", ErrMalformedDocument, doc.Path)
	}
	return word, nil
}

func readWord(r *fieldReader) *entity.Word {
	return &entity.Word{
		ID:         strings.TrimSpace(r.str(FieldID)),
		Headword:   r.str(FieldHeadword),
		Definition: r.str(FieldDefinition),
		Phonetic:   r.str(FieldPhonetic),
		Language:   entity.ParseLanguage(r.str(FieldLanguage)),
		Examples:   r.strings(FieldExamples),
		Tags:       r.strings(FieldTags),
		Favorite:   r.boolean(FieldFavorite),
		Difficulty: r.integer(FieldDifficulty),
		UpdatedAt:  r.timestamp(FieldUpdatedAt),
	}
}
