package entitlement

import (
	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/repository"
)

// Limit caps how many shared dictionaries one user may own. Zero or less
// means unlimited.
type Limit struct {
	MaxSharedDictionaries int
}

var _ repository.Entitlement = Limit{}

func FromConfig(cfg config.EntitlementConfig) Limit {
	return Limit{MaxSharedDictionaries: cfg.MaxSharedDictionaries}
}

func (l Limit) CanCreateMoreSharedDictionaries(ownedCount int) bool {
	if l.MaxSharedDictionaries <= 0 {
		return true
	}
	return ownedCount < l.MaxSharedDictionaries
}
