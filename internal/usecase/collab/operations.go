package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/adapter/mapping"
	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

// CreateSharedDictionary creates a dictionary owned by ownerID together with
// the owner's collaborator document, and starts listening to its
// collaborators.
func (e *Engine) CreateSharedDictionary(ctx context.Context, ownerID, name string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return "", fmt.Errorf("%w: owner and name are required", entity.ErrInvalidInput)
	}
	email, ok := e.identity.CurrentUserEmail()
	email = entity.NormalizeEmail(email)
	if !ok || email == "" {
		return "", entity.ErrUserNotAuthenticated
	}

	owned, err := e.countOwned(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if e.entitlement != nil && !e.entitlement.CanCreateMoreSharedDictionaries(owned) {
		return "", fmt.Errorf("%w: %d owned", entity.ErrDictionaryLimitReached, owned)
	}

	dict := &entity.SharedDictionary{
		ID:         e.newID(),
		Name:       name,
		OwnerID:    ownerID,
		OwnerEmail: email,
		CreatedAt:  e.clock().UTC(),
	}
	owner := entity.Collaborator{
		Email:       email,
		DisplayName: e.identity.CurrentUserDisplayName(),
		Role:        entity.RoleOwner,
		UserID:      ownerID,
	}
	batch := e.store.Batch()
	batch.Set(repository.DictionaryPath(dict.ID), mapping.ToDictionaryDocument(dict))
	batch.Set(repository.DocumentPath(repository.CollaboratorsCollection(dict.ID), email), mapping.ToCollaboratorDocument(owner))
	if err := e.retry.Do(ctx, "create dictionary", batch.Commit); err != nil {
		return "", err
	}

	e.logger.WithFields(logrus.Fields{"dictionary_id": dict.ID, "owner": ownerID}).Info("shared dictionary created")
	if err := e.registerCollaboratorsListener(dict.ID); err != nil {
		e.logger.WithError(err).WithField("dictionary_id", dict.ID).Warn("register collaborators listener failed")
	}
	return dict.ID, nil
}

// countOwned scans the dictionaries collection for ownerID.
func (e *Engine) countOwned(ctx context.Context, ownerID string) (int, error) {
	docs, err := repository.QueryAll(ctx, e.store, repository.DictionariesCollection, e.pageSize)
	if err != nil {
		return 0, fmt.Errorf("count owned dictionaries: %w", err)
	}
	return lo.CountBy(docs, func(doc repository.Document) bool {
		owner, _ := doc.Data[mapping.FieldOwner].(string)
		return owner == ownerID
	}), nil
}

// AddCollaborator upserts a collaborator keyed by email. The owner role
// cannot be granted and the owner's own record cannot be overwritten.
func (e *Engine) AddCollaborator(ctx context.Context, dictionaryID, userID, email, displayName string, role entity.Role) error {
	dictionaryID = strings.TrimSpace(dictionaryID)
	userID = strings.TrimSpace(userID)
	email = entity.NormalizeEmail(email)
	if dictionaryID == "" || userID == "" || email == "" {
		return fmt.Errorf("%w: dictionary, user and email are required", entity.ErrInvalidInput)
	}
	parsed, ok := entity.ParseRole(string(role))
	if !ok || parsed == entity.RoleOwner {
		return fmt.Errorf("%w: role %q cannot be assigned", entity.ErrInvalidInput, role)
	}
	if e.isOwnerEmail(dictionaryID, email) {
		return fmt.Errorf("%w: the owner is already a collaborator", entity.ErrInvalidInput)
	}
	c := entity.Collaborator{Email: email, DisplayName: displayName, Role: parsed, UserID: userID}
	path := repository.DocumentPath(repository.CollaboratorsCollection(dictionaryID), email)
	if err := e.store.Set(ctx, path, mapping.ToCollaboratorDocument(c)); err != nil {
		return fmt.Errorf("add collaborator: %w", err)
	}
	return nil
}

// RemoveCollaborator deletes a collaborator, invalidates the cached list and
// refreshes the visible dictionaries shortly after so the backend's own
// change notification can land first.
func (e *Engine) RemoveCollaborator(ctx context.Context, dictionaryID, email string) error {
	dictionaryID = strings.TrimSpace(dictionaryID)
	email = entity.NormalizeEmail(email)
	if dictionaryID == "" || email == "" {
		return fmt.Errorf("%w: dictionary and email are required", entity.ErrInvalidInput)
	}
	if e.isOwnerEmail(dictionaryID, email) {
		return fmt.Errorf("%w: the owner cannot be removed", entity.ErrInvalidInput)
	}
	path := repository.DocumentPath(repository.CollaboratorsCollection(dictionaryID), email)
	if err := e.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	e.registry.InvalidateCollaborators(dictionaryID)
	e.scheduleRefresh()
	return nil
}

func (e *Engine) scheduleRefresh() {
	time.AfterFunc(e.refreshDelay, func() {
		if e.ctx.Err() != nil {
			return
		}
		if err := e.RefreshDictionaries(e.ctx); err != nil && !isClosed(err) {
			e.logger.WithError(err).Warn("refresh dictionaries failed")
		}
	})
}

// UpdateCollaboratorRole changes a collaborator's role. Nobody can be made
// owner and the owner's role cannot change.
func (e *Engine) UpdateCollaboratorRole(ctx context.Context, dictionaryID, email string, role entity.Role) error {
	dictionaryID = strings.TrimSpace(dictionaryID)
	email = entity.NormalizeEmail(email)
	if dictionaryID == "" || email == "" {
		return fmt.Errorf("%w: dictionary and email are required", entity.ErrInvalidInput)
	}
	parsed, ok := entity.ParseRole(string(role))
	if !ok || parsed == entity.RoleOwner {
		return fmt.Errorf("%w: role %q cannot be assigned", entity.ErrInvalidInput, role)
	}
	if e.isOwnerEmail(dictionaryID, email) {
		return fmt.Errorf("%w: the owner's role cannot change", entity.ErrInvalidInput)
	}
	path := repository.DocumentPath(repository.CollaboratorsCollection(dictionaryID), email)
	if err := e.store.Update(ctx, path, map[string]any{mapping.FieldRole: string(parsed)}); err != nil {
		return fmt.Errorf("update collaborator role: %w", err)
	}
	return nil
}

// isOwnerEmail checks the visible dictionary and the cached collaborators.
func (e *Engine) isOwnerEmail(dictionaryID, email string) bool {
	if dict, ok := e.Dictionary(dictionaryID); ok && dict.OwnerEmail == email {
		return true
	}
	cached, _ := e.registry.CachedCollaborators(dictionaryID)
	return lo.ContainsBy(cached, func(c entity.Collaborator) bool {
		return c.Role == entity.RoleOwner && c.Email == email
	})
}

// DeleteSharedDictionary deletes the dictionary with its words and
// collaborators, then drops it from local state and stops its listeners.
// Only the owner may delete.
func (e *Engine) DeleteSharedDictionary(ctx context.Context, dictionaryID string) error {
	userID, _, err := e.currentUser()
	if err != nil {
		return err
	}
	dict, ok := e.Dictionary(dictionaryID)
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrDictionaryNotFound, dictionaryID)
	}
	if !dict.IsOwner(userID) {
		return fmt.Errorf("%w: only the owner can delete %s", entity.ErrPermissionDenied, dictionaryID)
	}

	wordIDs, err := e.store.ListIDs(ctx, repository.DictionaryWordsCollection(dictionaryID))
	if err != nil {
		return fmt.Errorf("list dictionary words: %w", err)
	}
	collaboratorIDs, err := e.store.ListIDs(ctx, repository.CollaboratorsCollection(dictionaryID))
	if err != nil {
		return fmt.Errorf("list dictionary collaborators: %w", err)
	}
	paths := make([]string, 0, len(wordIDs)+len(collaboratorIDs)+1)
	for _, id := range wordIDs {
		paths = append(paths, repository.DocumentPath(repository.DictionaryWordsCollection(dictionaryID), id))
	}
	for _, id := range collaboratorIDs {
		paths = append(paths, repository.DocumentPath(repository.CollaboratorsCollection(dictionaryID), id))
	}
	paths = append(paths, repository.DictionaryPath(dictionaryID))

	// the dictionary document goes in the last batch so a partial failure
	// leaves it in place for another attempt
	for _, chunk := range lo.Chunk(paths, repository.MaxBatchWrites) {
		batch := e.store.Batch()
		for _, path := range chunk {
			batch.Delete(path)
		}
		if err := e.retry.Do(ctx, "delete dictionary", batch.Commit); err != nil {
			return err
		}
	}

	e.registry.StopDictionary(dictionaryID)
	err = e.dispatcher.Run(ctx, func() {
		delete(e.dictionaries, dictionaryID)
		delete(e.words, dictionaryID)
		e.publishState()
		e.notifyDictionaries()
	})
	if err != nil {
		return err
	}
	e.logger.WithFields(logrus.Fields{"dictionary_id": dictionaryID, "words": len(wordIDs)}).Info("shared dictionary deleted")
	return nil
}

// AddWord writes a new shared word attributed to the current user.
func (e *Engine) AddWord(ctx context.Context, dictionaryID string, word *entity.Word) (*entity.SharedWord, error) {
	dictionaryID = strings.TrimSpace(dictionaryID)
	if dictionaryID == "" || word == nil || strings.TrimSpace(word.Headword) == "" {
		return nil, fmt.Errorf("%w: dictionary and headword are required", entity.ErrInvalidInput)
	}
	_, email, err := e.currentUser()
	if err != nil {
		return nil, err
	}
	w := word.Clone()
	if strings.TrimSpace(w.ID) == "" {
		w.ID = e.newID()
	}
	w.Normalize(e.clock())
	shared := &entity.SharedWord{
		Word:               *w,
		DictionaryID:       dictionaryID,
		AddedByEmail:       email,
		AddedByDisplayName: e.identity.CurrentUserDisplayName(),
		Likes:              map[string]bool{},
		Difficulties:       map[string]int{},
	}
	path := repository.DocumentPath(repository.DictionaryWordsCollection(dictionaryID), w.ID)
	if err := e.store.Set(ctx, path, mapping.ToSharedWordDocument(shared)); err != nil {
		return nil, fmt.Errorf("add shared word: %w", err)
	}
	return shared, nil
}

// UpdateWord rewrites the vocabulary fields of a shared word. Attribution,
// likes and difficulties are left alone.
func (e *Engine) UpdateWord(ctx context.Context, dictionaryID string, word *entity.Word) error {
	dictionaryID = strings.TrimSpace(dictionaryID)
	if dictionaryID == "" || word == nil || strings.TrimSpace(word.ID) == "" || strings.TrimSpace(word.Headword) == "" {
		return fmt.Errorf("%w: dictionary, word id and headword are required", entity.ErrInvalidInput)
	}
	w := word.Clone()
	w.Normalize(e.clock())
	path := repository.DocumentPath(repository.DictionaryWordsCollection(dictionaryID), w.ID)
	if err := e.store.Update(ctx, path, mapping.ToWordDocument(w)); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return fmt.Errorf("%w: %s", entity.ErrWordNotFound, w.ID)
		}
		return fmt.Errorf("update shared word: %w", err)
	}
	return nil
}

// DeleteWord removes a shared word remotely and from local state.
func (e *Engine) DeleteWord(ctx context.Context, dictionaryID, wordID string) error {
	dictionaryID = strings.TrimSpace(dictionaryID)
	wordID = strings.TrimSpace(wordID)
	if dictionaryID == "" || wordID == "" {
		return fmt.Errorf("%w: dictionary and word id are required", entity.ErrInvalidInput)
	}
	path := repository.DocumentPath(repository.DictionaryWordsCollection(dictionaryID), wordID)
	if err := e.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete shared word: %w", err)
	}
	return e.dispatcher.Run(ctx, func() {
		words, ok := e.words[dictionaryID]
		if !ok {
			return
		}
		e.words[dictionaryID] = lo.Reject(words, func(w entity.SharedWord, _ int) bool { return w.ID == wordID })
		e.publishState()
		e.notifyWords(dictionaryID)
	})
}

// ToggleLike flips the current user's like on a word and returns the new
// value. Only the user's own entry is written.
func (e *Engine) ToggleLike(ctx context.Context, dictionaryID, wordID string) (bool, error) {
	path, email, err := e.wordEntryTarget(dictionaryID, wordID)
	if err != nil {
		return false, err
	}
	doc, err := e.store.Get(ctx, path)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return false, fmt.Errorf("%w: %s", entity.ErrWordNotFound, wordID)
	}
	if err != nil {
		return false, fmt.Errorf("read shared word: %w", err)
	}
	likes, err := mapping.ReadLikes(doc.Data)
	if err != nil {
		return false, err
	}
	liked := !likes[email]
	if err := e.writeWordEntry(ctx, path, wordID, mapping.FieldLikes, email, liked); err != nil {
		return false, err
	}
	return liked, nil
}

// UpdateDifficulty records the current user's difficulty rating of a word.
func (e *Engine) UpdateDifficulty(ctx context.Context, dictionaryID, wordID string, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: difficulty must not be negative", entity.ErrInvalidInput)
	}
	path, email, err := e.wordEntryTarget(dictionaryID, wordID)
	if err != nil {
		return err
	}
	return e.writeWordEntry(ctx, path, wordID, mapping.FieldDifficulties, email, value)
}

// wordEntryTarget validates the ids and resolves the word path and the
// current user's email, which keys the per-user maps.
func (e *Engine) wordEntryTarget(dictionaryID, wordID string) (string, string, error) {
	dictionaryID = strings.TrimSpace(dictionaryID)
	wordID = strings.TrimSpace(wordID)
	if dictionaryID == "" || wordID == "" {
		return "", "", fmt.Errorf("%w: dictionary and word id are required", entity.ErrInvalidInput)
	}
	_, email, err := e.currentUser()
	if err != nil {
		return "", "", err
	}
	if email == "" {
		return "", "", entity.ErrUserNotAuthenticated
	}
	return repository.DocumentPath(repository.DictionaryWordsCollection(dictionaryID), wordID), email, nil
}

func (e *Engine) writeWordEntry(ctx context.Context, path, wordID, field, email string, value any) error {
	err := e.store.UpdateMapEntry(ctx, path, field, email, value)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %s", entity.ErrWordNotFound, wordID)
	}
	if err != nil {
		return fmt.Errorf("write shared word: %w", err)
	}
	return nil
}
