package moderation

import (
	"fmt"

	"github.com/jonesrussell/newsgate/internal/domain"
)

const (
	titleWeight       = 0.7
	descriptionWeight = 0.3
	duplicatePenalty  = 0.8
)

// Similarity is the weighted Jaccard similarity of two articles' titles and
// descriptions.
func Similarity(a, b domain.Article) float64 {
	return titleWeight*Jaccard(WordSet(a.Title), WordSet(b.Title)) +
		descriptionWeight*Jaccard(WordSet(a.Description), WordSet(b.Description))
}

// checkDuplicate compares a against prior and flags the closest match at or
// above threshold.
func checkDuplicate(a domain.Article, prior []domain.Article, threshold float64) []Flag {
	best, bestIdx := 0.0, -1
	for i := range prior {
		if s := Similarity(a, prior[i]); s > best {
			best, bestIdx = s, i
		}
	}
	if bestIdx < 0 || best < threshold {
		return nil
	}
	return []Flag{{
		Type:        FlagDuplicate,
		Severity:    SeverityHigh,
		Confidence:  best,
		Description: fmt.Sprintf("duplicate of %q (%.0f%% similar)", prior[bestIdx].Title, best*100),
		Penalty:     duplicatePenalty,
	}}
}
