package repository

// IdentityProvider supplies the signed-in user. The boolean is false when
// nobody is signed in.
type IdentityProvider interface {
	CurrentUserID() (string, bool)
	CurrentUserEmail() (string, bool)
	CurrentUserDisplayName() string
}

// Entitlement gates creation of shared dictionaries.
type Entitlement interface {
	CanCreateMoreSharedDictionaries(ownedCount int) bool
}
