package cluster

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Similarity scores two titles in [0,1]. Both sides are normalized, then
// the better of the token-set and token-sort ratios is taken: token-set
// is robust to subset phrasing, token-sort to word reordering. The max
// of the two deliberately favors recall over precision when deciding
// whether two headlines cover the same story.
func Similarity(left, right string) float64 {
	return similarityNormalized(NormalizeTitle(left), NormalizeTitle(right))
}

func similarityNormalized(a, b string) float64 {
	tokenSet := fuzzy.TokenSetRatio(a, b)
	tokenSort := fuzzy.TokenSortRatio(a, b)
	best := tokenSet
	if tokenSort > best {
		best = tokenSort
	}
	return float64(best) / 100.0
}
