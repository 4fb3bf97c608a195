// Package dedup finds lead records that refer to the same contact, guards
// writes against creating new ones and folds duplicates into a primary.
package dedup

import (
	"leadcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Group is a primary lead and the leads sharing its mobile or email.
type Group struct {
	Primary repository.Lead
	Matches []repository.Lead
}

// FindDuplicateGroups partitions leads by shared contact in one pass.
// The first lead seen becomes the primary of its group and every lead
// lands in at most one group, so the input order decides primaries.
func FindDuplicateGroups(leads []repository.Lead) []Group {
	processed := make(map[uuid.UUID]bool, len(leads))
	groups := make([]Group, 0)

	for i, primary := range leads {
		if processed[primary.ID] {
			continue
		}
		processed[primary.ID] = true

		var matches []repository.Lead
		for _, candidate := range leads[i+1:] {
			if processed[candidate.ID] || !sameContact(primary, candidate) {
				continue
			}
			processed[candidate.ID] = true
			matches = append(matches, candidate)
		}

		if len(matches) > 0 {
			groups = append(groups, Group{Primary: primary, Matches: matches})
		}
	}
	return groups
}

func sameContact(a, b repository.Lead) bool {
	if a.Mobile != "" && a.Mobile == b.Mobile {
		return true
	}
	return a.HasEmail() && b.HasEmail() && *a.Email == *b.Email
}
