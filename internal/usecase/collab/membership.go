package collab

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/adapter/mapping"
	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

func alwaysAlive() bool { return true }

// RefreshDictionaries reads the dictionaries collection once and recomputes
// the visible set.
func (e *Engine) RefreshDictionaries(ctx context.Context) error {
	docs, err := repository.QueryAll(ctx, e.store, repository.DictionariesCollection, e.pageSize)
	if err != nil {
		return fmt.Errorf("refresh dictionaries: %w", err)
	}
	e.applyMembership(ctx, docs, alwaysAlive)
	return e.dispatcher.Flush(ctx)
}

// applyMembership computes visibility for every dictionary document and
// hands the result to the dispatcher. Visible dictionaries get their words
// and collaborators listeners.
func (e *Engine) applyMembership(ctx context.Context, docs []repository.Document, alive AliveFunc) {
	userID, email, err := e.currentUser()
	signedIn := err == nil

	present := make(map[string]struct{}, len(docs))
	visible := make([]entity.SharedDictionary, 0, len(docs))
	for _, doc := range docs {
		dict, err := mapping.FromDictionaryDocument(doc)
		if err != nil {
			e.logger.WithError(err).WithField("doc_id", doc.ID).Warn("skip malformed dictionary")
			continue
		}
		present[dict.ID] = struct{}{}
		if !signedIn {
			continue
		}
		collaborators, err := e.loadCollaborators(ctx, dict.ID)
		if err != nil {
			e.logger.WithError(err).WithField("dictionary_id", dict.ID).Warn("load collaborators failed")
		}
		dict.Collaborators = collaborators
		if dict.IsOwner(userID) || entity.HasCollaboratorEmail(collaborators, email) {
			visible = append(visible, *dict)
		}
	}
	sortDictionaries(visible)

	e.dispatcher.Dispatch(func() {
		if !alive() {
			return
		}
		for id := range e.dictionaries {
			if _, ok := present[id]; !ok {
				e.logger.WithField("dictionary_id", id).Info("dictionary removed remotely")
				e.registry.StopDictionary(id)
				delete(e.words, id)
			}
		}
		next := make(map[string]entity.SharedDictionary, len(visible))
		for _, d := range visible {
			next[d.ID] = d
		}
		e.dictionaries = next
		e.publishState()
		e.notifyDictionaries()
	})

	if !alive() {
		return
	}
	for _, d := range visible {
		if err := e.registerDictionaryListeners(d.ID); err != nil {
			e.logger.WithError(err).WithField("dictionary_id", d.ID).Warn("register dictionary listeners failed")
		}
	}
}

// loadCollaborators reads the cache first and the network on a miss.
// Concurrent misses for one dictionary share a single query.
func (e *Engine) loadCollaborators(ctx context.Context, dictionaryID string) ([]entity.Collaborator, error) {
	if cached, ok := e.registry.CachedCollaborators(dictionaryID); ok {
		return cached, nil
	}
	v, err, _ := e.loads.Do(dictionaryID, func() (any, error) {
		docs, err := repository.QueryAll(ctx, e.store, repository.CollaboratorsCollection(dictionaryID), e.pageSize)
		if err != nil {
			return nil, err
		}
		return e.registry.SetCollaboratorsIfAbsent(dictionaryID, e.decodeCollaborators(dictionaryID, docs)), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCollaborators(v.([]entity.Collaborator)), nil
}

func (e *Engine) decodeCollaborators(dictionaryID string, docs []repository.Document) []entity.Collaborator {
	out := make([]entity.Collaborator, 0, len(docs))
	for _, doc := range docs {
		c, err := mapping.FromCollaboratorDocument(doc)
		if err != nil {
			e.logger.WithError(err).WithField("dictionary_id", dictionaryID).Warn("skip malformed collaborator")
			continue
		}
		out = append(out, c)
	}
	return out
}

func (e *Engine) registerDictionaryListeners(dictionaryID string) error {
	if err := e.registerCollaboratorsListener(dictionaryID); err != nil {
		return err
	}
	return e.registerWordsListener(dictionaryID)
}

func (e *Engine) registerCollaboratorsListener(dictionaryID string) error {
	key := ListenerKey{DictionaryID: dictionaryID, Kind: KindCollaborators}
	collection := repository.CollaboratorsCollection(dictionaryID)
	return e.registry.Register(key, func(alive AliveFunc) (repository.Subscription, error) {
		return e.store.Listen(e.ctx, collection, func(snap repository.Snapshot, err error) {
			if err != nil {
				e.logger.WithError(err).WithField("dictionary_id", dictionaryID).Warn("collaborators listener delivery failed")
				return
			}
			if !alive() {
				return
			}
			e.handleCollaborators(dictionaryID, snap.Documents, alive)
		})
	})
}

// handleCollaborators updates the cache at once and arms the debounced
// emission. The emission re-checks access and evicts the dictionary from
// the visible set when the current user is no longer on it. Its listeners
// stay registered.
func (e *Engine) handleCollaborators(dictionaryID string, docs []repository.Document, alive AliveFunc) {
	collaborators := e.decodeCollaborators(dictionaryID, docs)
	e.registry.ApplyCollaboratorsSnapshot(dictionaryID, collaborators, alive, e.debounce, func(collaborators []entity.Collaborator) {
		e.dispatcher.Dispatch(func() {
			if !alive() {
				return
			}
			e.emitCollaborators(dictionaryID, collaborators)
		})
	})
}

func (e *Engine) emitCollaborators(dictionaryID string, collaborators []entity.Collaborator) {
	dict, ok := e.dictionaries[dictionaryID]
	if ok {
		userID, email, _ := e.currentUser()
		if !dict.IsOwner(userID) && !entity.HasCollaboratorEmail(collaborators, email) {
			e.logger.WithFields(logrus.Fields{"dictionary_id": dictionaryID, "email": email}).Info("access lost, evicting dictionary")
			delete(e.dictionaries, dictionaryID)
		} else {
			dict.Collaborators = cloneCollaborators(collaborators)
			e.dictionaries[dictionaryID] = dict
		}
		e.publishState()
		e.notifyDictionaries()
	}
	e.notifyCollaborators(dictionaryID, collaborators)
}

func (e *Engine) registerWordsListener(dictionaryID string) error {
	key := ListenerKey{DictionaryID: dictionaryID, Kind: KindWords}
	collection := repository.DictionaryWordsCollection(dictionaryID)
	return e.registry.Register(key, func(alive AliveFunc) (repository.Subscription, error) {
		return e.store.Listen(e.ctx, collection, func(snap repository.Snapshot, err error) {
			if err != nil {
				e.logger.WithError(err).WithField("dictionary_id", dictionaryID).Warn("words listener delivery failed")
				return
			}
			words := make([]entity.SharedWord, 0, len(snap.Documents))
			for _, doc := range snap.Documents {
				w, err := mapping.FromSharedWordDocument(dictionaryID, doc)
				if err != nil {
					e.logger.WithError(err).WithField("dictionary_id", dictionaryID).Warn("skip malformed shared word")
					continue
				}
				words = append(words, *w)
			}
			e.dispatcher.Dispatch(func() {
				if !alive() {
					return
				}
				e.words[dictionaryID] = words
				e.publishState()
				e.notifyWords(dictionaryID)
			})
		})
	})
}

// sortDictionaries orders by creation time, newest first.
func sortDictionaries(dicts []entity.SharedDictionary) {
	sort.SliceStable(dicts, func(i, j int) bool {
		if !dicts[i].CreatedAt.Equal(dicts[j].CreatedAt) {
			return dicts[i].CreatedAt.After(dicts[j].CreatedAt)
		}
		return dicts[i].ID < dicts[j].ID
	})
}
