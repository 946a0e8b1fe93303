// Package merge reconciles a local vocabulary entry with its remote copy.
package merge

import (
	"github.com/samber/lo"

	"github.com/eslsoft/vocsync/internal/entity"
)

// Merge folds remote into existing and reports whether existing changed.
// A remote copy older than existing is ignored, so repeated or out of order
// application is safe. Tag membership follows remote: tags missing remotely
// are dropped even when remote carries no newer timestamp than a concurrent
// local edit.
func Merge(existing, remote *entity.Word) bool {
	if existing == nil || remote == nil {
		return false
	}
	if entity.CompareTimestamps(remote.UpdatedAt, existing.UpdatedAt) < 0 {
		return false
	}

	changed := false
	assign := func(dst *string, src string) {
		if *dst != src {
			*dst = src
			changed = true
		}
	}
	assign(&existing.Headword, remote.Headword)
	assign(&existing.Definition, remote.Definition)
	assign(&existing.Phonetic, remote.Phonetic)
	if existing.Language != remote.Language {
		existing.Language = remote.Language
		changed = true
	}
	if existing.Favorite != remote.Favorite {
		existing.Favorite = remote.Favorite
		changed = true
	}
	if existing.Difficulty != remote.Difficulty {
		existing.Difficulty = remote.Difficulty
		changed = true
	}

	if examples, ok := unionExamples(existing.Examples, remote.Examples); ok {
		existing.Examples = examples
		changed = true
	}
	if tags, ok := reconcileTags(existing.Tags, remote.Tags); ok {
		existing.Tags = tags
		changed = true
	}

	if latest := entity.LaterTimestamp(existing.UpdatedAt, remote.UpdatedAt); entity.CompareTimestamps(latest, existing.UpdatedAt) != 0 {
		existing.UpdatedAt = latest
		changed = true
	}
	if !existing.IsSynced {
		existing.IsSynced = true
		changed = true
	}
	return changed
}

// unionExamples keeps local order and appends remote-only examples in
// remote order.
func unionExamples(local, remote []string) ([]string, bool) {
	missing := lo.Filter(remote, func(ex string, _ int) bool {
		return !lo.Contains(local, ex)
	})
	if len(missing) == 0 {
		return local, false
	}
	out := make([]string, 0, len(local)+len(missing))
	out = append(out, local...)
	return append(out, lo.Uniq(missing)...), true
}

// reconcileTags makes remote authoritative for membership: retained tags
// keep their local position and remote-only tags follow in remote order.
func reconcileTags(local, remote []string) ([]string, bool) {
	kept := lo.Filter(local, func(tag string, _ int) bool {
		return lo.Contains(remote, tag)
	})
	added := lo.Uniq(lo.Filter(remote, func(tag string, _ int) bool {
		return !lo.Contains(local, tag)
	}))
	if len(kept) == len(local) && len(added) == 0 {
		return local, false
	}
	out := make([]string, 0, len(kept)+len(added))
	out = append(out, kept...)
	return append(out, added...), true
}
