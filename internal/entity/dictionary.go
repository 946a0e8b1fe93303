package entity

import (
	"strings"
	"time"
)

// Role is a collaborator's permission level on a shared dictionary.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole converts a raw string into a Role, reporting whether it is known.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleEditor:
		return RoleEditor, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// SharedDictionary is a named multi-collaborator collection of words.
type SharedDictionary struct {
	ID            string
	Name          string
	OwnerID       string
	OwnerEmail    string
	CreatedAt     time.Time
	Collaborators []Collaborator
}

// IsOwner reports whether userID owns the dictionary.
func (d *SharedDictionary) IsOwner(userID string) bool {
	return userID != "" && d.OwnerID == userID
}

// Clone returns a copy with its own collaborator slice.
func (d SharedDictionary) Clone() SharedDictionary {
	if d.Collaborators != nil {
		d.Collaborators = append([]Collaborator(nil), d.Collaborators...)
	}
	return d
}

// Collaborator is a user with a role on a shared dictionary, keyed by email.
type Collaborator struct {
	Email       string
	DisplayName string
	Role        Role
	UserID      string
}

// HasCollaboratorEmail reports whether email is present in list, ignoring case.
func HasCollaboratorEmail(list []Collaborator, email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, c := range list {
		if NormalizeEmail(c.Email) == email {
			return true
		}
	}
	return false
}

// SharedWord is a Word inside a shared dictionary with attribution and
// per-user collaborative state.
type SharedWord struct {
	Word

	DictionaryID       string
	AddedByEmail       string
	AddedByDisplayName string
	Likes              map[string]bool
	Difficulties       map[string]int
}

// LikeCount returns the number of collaborators currently liking the word.
func (w *SharedWord) LikeCount() int {
	n := 0
	for _, liked := range w.Likes {
		if liked {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the shared word.
func (w SharedWord) Clone() SharedWord {
	w.Word = *w.Word.Clone()
	if w.Likes != nil {
		likes := make(map[string]bool, len(w.Likes))
		for k, v := range w.Likes {
			likes[k] = v
		}
		w.Likes = likes
	}
	if w.Difficulties != nil {
		diffs := make(map[string]int, len(w.Difficulties))
		for k, v := range w.Difficulties {
			diffs[k] = v
		}
		w.Difficulties = diffs
	}
	return w
}
