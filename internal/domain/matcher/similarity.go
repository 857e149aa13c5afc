package matcher

import (
	"math"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/eshaffer321/church-reconciler/internal/domain/textnorm"
)

// Similarity scores two names from 0 to 100. It is the larger of the
// Levenshtein ratio of the normalized strings and the Dice coefficient of
// their words longer than two letters, so word order and extra middle names
// cost little. Scores are rounded to two decimals.
func Similarity(a, b string) float64 {
	ka, kb := textnorm.NormalizeKey(a), textnorm.NormalizeKey(b)
	if ka == "" || kb == "" {
		return 0
	}
	if ka == kb {
		return 100
	}

	ratio := levenshtein.RatioForStrings([]rune(ka), []rune(kb), levenshtein.DefaultOptions) * 100
	score := math.Max(ratio, tokenScore(textnorm.Tokens(ka), textnorm.Tokens(kb)))
	return math.Round(score*100) / 100
}

func tokenScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	remaining := make(map[string]int, len(b))
	for _, tok := range b {
		remaining[tok]++
	}

	shared := 0
	for _, tok := range a {
		if remaining[tok] > 0 {
			remaining[tok]--
			shared++
		}
	}

	return 200 * float64(shared) / float64(len(a)+len(b))
}
