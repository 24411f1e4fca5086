// internal/matching/evaluator.go

// Package matching decides whether a listing satisfies a subscription's
// filter set. Pure functions, no I/O.
package matching

import "estatehub-notifier/internal/models"

// Matches reports whether every present filter field is satisfied by the
// listing. Absent fields impose no constraint. Category and type are opaque
// identifiers compared for exact equality; tags match when the filter's tag
// set intersects the listing's.
func Matches(listing *models.Listing, filters models.FilterSet) bool {
	if filters.Category != nil {
		if listing.CategoryID == nil || *listing.CategoryID != *filters.Category {
			return false
		}
	}

	if filters.Type != nil && listing.Type != *filters.Type {
		return false
	}

	if filters.MinPrice != nil && listing.Price < *filters.MinPrice {
		return false
	}
	if filters.MaxPrice != nil && listing.Price > *filters.MaxPrice {
		return false
	}

	if filters.MinArea != nil && listing.Area < *filters.MinArea {
		return false
	}
	if filters.MaxArea != nil && listing.Area > *filters.MaxArea {
		return false
	}

	if len(filters.Tags) > 0 && !intersects(filters.Tags, listing.Tags) {
		return false
	}

	return true
}

func intersects(want, have []string) bool {
	if len(have) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
