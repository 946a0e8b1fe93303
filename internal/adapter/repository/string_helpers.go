package repository

import (
	"strings"

	"github.com/samber/lo"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// normalizeHeadwords lowercases and trims headword filters, dropping blanks
// and duplicates while keeping first-seen order.
func normalizeHeadwords(in []string) []string {
	out := lo.Uniq(lo.FilterMap(in, func(item string, _ int) (string, bool) {
		v := strings.ToLower(strings.TrimSpace(item))
		return v, v != ""
	}))
	if len(out) == 0 {
		return nil
	}
	return out
}

// escapeLike quotes LIKE wildcards so s matches literally under ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
