package repository

import (
	"strings"
)

const (
	UsersCollection        = "users"
	DictionariesCollection = "dictionaries"
	wordsSegment           = "words"
	collaboratorsSegment   = "collaborators"
)

// UserWordsCollection is the private backup collection of one user.
func UserWordsCollection(owner string) string {
	return UsersCollection + "/" + owner + "/" + wordsSegment
}

// DictionaryPath addresses a shared dictionary document.
func DictionaryPath(dictionaryID string) string {
	return DocumentPath(DictionariesCollection, dictionaryID)
}

// CollaboratorsCollection holds the collaborator documents of a dictionary.
func CollaboratorsCollection(dictionaryID string) string {
	return DictionaryPath(dictionaryID) + "/" + collaboratorsSegment
}

// DictionaryWordsCollection holds the shared words of a dictionary.
func DictionaryWordsCollection(dictionaryID string) string {
	return DictionaryPath(dictionaryID) + "/" + wordsSegment
}

// DocumentPath joins a collection and a document id.
func DocumentPath(collection, id string) string {
	return collection + "/" + id
}

// SplitDocumentPath returns the collection and document id of path.
func SplitDocumentPath(path string) (collection, id string, ok bool) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", false
	}
	// document paths have an even number of segments
	if strings.Count(path, "/")%2 == 0 {
		return "", "", false
	}
	return path[:idx], path[idx+1:], true
}
