package search

import (
	"sort"
	"time"

	"github.com/sha1n/newsdex/internal/domain"
)

const millisPerHour = int64(time.Hour / time.Millisecond)

// FreshnessMultiplier returns the step boost for a document of the given age.
// Age is truncated to whole hours before banding.
func FreshnessMultiplier(ageMillis int64) float64 {
	hours := ageMillis / millisPerHour
	switch {
	case hours < 1:
		return 2.0
	case hours < 6:
		return 1.7
	case hours < 24:
		return 1.4
	case hours < 72:
		return 1.1
	default:
		return 1.0
	}
}

// sortByScore orders results by boosted score, highest first, keeping index order on ties.
func sortByScore(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
