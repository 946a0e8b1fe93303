package entitlement

import (
	"testing"

	"github.com/eslsoft/vocsync/internal/infrastructure/config"
)

func TestLimit(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		owned int
		want  bool
	}{
		{name: "unlimited", max: 0, owned: 100, want: true},
		{name: "below cap", max: 3, owned: 2, want: true},
		{name: "at cap", max: 3, owned: 3, want: false},
		{name: "above cap", max: 1, owned: 4, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := FromConfig(config.EntitlementConfig{MaxSharedDictionaries: tt.max})
			if got := l.CanCreateMoreSharedDictionaries(tt.owned); got != tt.want {
				t.Fatalf("CanCreateMoreSharedDictionaries(%d) = %v, want %v", tt.owned, got, tt.want)
			}
		})
	}
}
