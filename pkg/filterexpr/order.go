package filterexpr

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// MaxOrderTerms caps how many keys a caller may sort by.
const MaxOrderTerms = 2

// OrderTerm is one sort key with its direction.
type OrderTerm struct {
	Key  string
	Desc bool
}

// OrderSpec whitelists sort keys. Default applies when the caller gives no
// order. Tiebreak is appended ascending unless already present, so paging
// stays stable.
type OrderSpec struct {
	Keys     []string
	Default  []OrderTerm
	Tiebreak string
}

// ParseOrder parses "key [asc|desc], key [asc|desc]".
func ParseOrder(raw string, spec OrderSpec) ([]OrderTerm, error) {
	var terms []OrderTerm
	for _, seg := range strings.Split(raw, ",") {
		parts := strings.Fields(seg)
		if len(parts) == 0 {
			continue
		}
		if len(parts) > 2 {
			return nil, fmt.Errorf("invalid order segment %q", strings.TrimSpace(seg))
		}
		term := OrderTerm{Key: parts[0]}
		if !lo.Contains(spec.Keys, term.Key) {
			return nil, fmt.Errorf("field %q cannot be used for ordering", term.Key)
		}
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				term.Desc = true
			default:
				return nil, fmt.Errorf("invalid direction %q for field %q", parts[1], term.Key)
			}
		}
		if lo.ContainsBy(terms, func(t OrderTerm) bool { return t.Key == term.Key }) {
			return nil, fmt.Errorf("duplicate order key %q", term.Key)
		}
		terms = append(terms, term)
	}
	if len(terms) > MaxOrderTerms {
		return nil, fmt.Errorf("order_by supports at most %d keys", MaxOrderTerms)
	}

	if len(terms) == 0 {
		terms = append(terms, spec.Default...)
	}
	if spec.Tiebreak != "" && !lo.ContainsBy(terms, func(t OrderTerm) bool { return t.Key == spec.Tiebreak }) {
		terms = append(terms, OrderTerm{Key: spec.Tiebreak})
	}
	return terms, nil
}
