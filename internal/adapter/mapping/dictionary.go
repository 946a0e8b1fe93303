package mapping

import (
	"fmt"
	"strings"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

const (
	FieldName       = "name"
	FieldOwner      = "owner"
	FieldOwnerEmail = "ownerEmail"
	FieldCreatedAt  = "createdAt"

	FieldEmail       = "email"
	FieldDisplayName = "displayName"
	FieldRole        = "role"
	FieldUserID      = "userId"

	FieldDictionaryID       = "dictionaryId"
	FieldAddedByEmail       = "addedByEmail"
	FieldAddedByDisplayName = "addedByDisplayName"
	FieldLikes              = "likes"
	FieldDifficulties       = "difficulties"
)

func ToDictionaryDocument(in *entity.SharedDictionary) map[string]any {
	return map[string]any{
		FieldName:       in.Name,
		FieldOwner:      in.OwnerID,
		FieldOwnerEmail: entity.NormalizeEmail(in.OwnerEmail),
		FieldCreatedAt:  formatTime(in.CreatedAt),
	}
}

// FromDictionaryDocument decodes the dictionary document. Collaborators live
// in their own collection and are left empty.
func FromDictionaryDocument(doc repository.Document) (*entity.SharedDictionary, error) {
	r := &fieldReader{data: doc.Data}
	dict := &entity.SharedDictionary{
		ID:         doc.ID,
		Name:       r.str(FieldName),
		OwnerID:    r.str(FieldOwner),
		OwnerEmail: entity.NormalizeEmail(r.str(FieldOwnerEmail)),
	}
	if ts := r.timestamp(FieldCreatedAt); ts != nil {
		dict.CreatedAt = *ts
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrMalformedDocument, doc.Path, r.err)
	}
	if dict.ID == "" || dict.OwnerID == "" {
		return nil, fmt.Errorf("%w %s: id and owner are required", ErrMalformedDocument, doc.Path)
	}
	return dict, nil
}

func ToCollaboratorDocument(in entity.Collaborator) map[string]any {
	out := map[string]any{
		FieldEmail: entity.NormalizeEmail(in.Email),
		FieldRole:  string(in.Role),
	}
	if name := strings.TrimSpace(in.DisplayName); name != "" {
		out[FieldDisplayName] = name
	}
	if in.UserID != "" {
		out[FieldUserID] = in.UserID
	}
	return out
}

// FromCollaboratorDocument decodes a collaborator keyed by its document id
// (the email). Unknown roles degrade to viewer.
func FromCollaboratorDocument(doc repository.Document) (entity.Collaborator, error) {
	r := &fieldReader{data: doc.Data}
	email := r.str(FieldEmail)
	if email == "" {
		email = doc.ID
	}
	role, ok := entity.ParseRole(r.str(FieldRole))
	if !ok {
		role = entity.RoleViewer
	}
	c := entity.Collaborator{
		Email:       entity.NormalizeEmail(email),
		DisplayName: r.str(FieldDisplayName),
		Role:        role,
		UserID:      r.str(FieldUserID),
	}
	if r.err != nil {
		return entity.Collaborator{}, fmt.Errorf("%w %s: %w", ErrMalformedDocument, doc.Path, r.err)
	}
	if c.Email == "" {
		return entity.Collaborator{}, fmt.Errorf("%w %s: email is required", ErrMalformedDocument, doc.Path)
	}
	return c, nil
}

func ToSharedWordDocument(in *entity.SharedWord) map[string]any {
	out := ToWordDocument(&in.Word)
	out[FieldDictionaryID] = in.DictionaryID
	out[FieldAddedByEmail] = entity.NormalizeEmail(in.AddedByEmail)
	out[FieldAddedByDisplayName] = in.AddedByDisplayName
	out[FieldLikes] = likesValue(in.Likes)
	out[FieldDifficulties] = difficultiesValue(in.Difficulties)
	return out
}

func FromSharedWordDocument(dictionaryID string, doc repository.Document) (*entity.SharedWord, error) {
	r := &fieldReader{data: doc.Data}
	word := readWord(r)
	if doc.ID != "" {
		word.ID = doc.ID
	}
	out := &entity.SharedWord{
		Word:               *word,
		DictionaryID:       dictionaryID,
		AddedByEmail:       entity.NormalizeEmail(r.str(FieldAddedByEmail)),
		AddedByDisplayName: r.str(FieldAddedByDisplayName),
		Likes:              r.boolMap(FieldLikes),
		Difficulties:       r.intMap(FieldDifficulties),
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrMalformedDocument, doc.Path, r.err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w %s: id is required", ErrMalformedDocument, doc.Path)
	}
	return out, nil
}

// ReadLikes decodes the likes map of a shared word document.
func ReadLikes(data map[string]any) (map[string]bool, error) {
	r := &fieldReader{data: data}
	likes := r.boolMap(FieldLikes)
	return likes, r.err
}

func likesValue(in map[string]bool) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func difficultiesValue(in map[string]int) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
