package repository

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/eslsoft/vocsync/pkg/filterexpr"
)

func buildPlaceholders(driver string, start, count int) []string {
	holders := make([]string, count)
	for i := 0; i < count; i++ {
		switch driver {
		case "postgres":
			holders[i] = fmt.Sprintf("$%d", start+i)
		default:
			holders[i] = "?"
		}
	}
	return holders
}

func buildUpsertClause(driver string, conflictCols, insertCols []string) (string, error) {
	updateCols, _ := lo.Difference(insertCols, conflictCols)
	if len(updateCols) == 0 {
		return fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(conflictCols, ", ")), nil
	}

	var excluded string
	switch driver {
	case "postgres":
		excluded = "EXCLUDED"
	case "sqlite3":
		excluded = "excluded"
	default:
		return "", fmt.Errorf("unsupported driver %q for upsert", driver)
	}
	assignments := lo.Map(updateCols, func(col string, _ int) string {
		return fmt.Sprintf("%s = %s.%s", col, excluded, col)
	})
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(conflictCols, ", "),
		strings.Join(assignments, ", "),
	), nil
}

// whereBuilder accumulates AND-ed conditions with driver specific placeholders.
type whereBuilder struct {
	driver string
	conds  []string
	args   []any
}

func (w *whereBuilder) add(cond string, args ...any) {
	holders := buildPlaceholders(w.driver, len(w.args)+1, len(args))
	anyHolders := lo.Map(holders, func(h string, _ int) any { return h })
	w.conds = append(w.conds, fmt.Sprintf(cond, anyHolders...))
	w.args = append(w.args, args...)
}

func (w *whereBuilder) addIn(column string, values []string) {
	holders := buildPlaceholders(w.driver, len(w.args)+1, len(values))
	w.conds = append(w.conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(holders, ", ")))
	w.args = append(w.args, lo.Map(values, func(v string, _ int) any { return v })...)
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func buildOrderByClause(terms []filterexpr.OrderTerm) string {
	parts := lo.Map(terms, func(t filterexpr.OrderTerm, _ int) string {
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		return fmt.Sprintf("%s %s NULLS LAST", wordOrderColumns[t.Key], dir)
	})
	return " ORDER BY " + strings.Join(parts, ", ")
}
