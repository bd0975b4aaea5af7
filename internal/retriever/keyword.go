package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"chemi/internal/domain"
)

// Keyword retrieves by fuzzy name/formula matching over the in-memory
// catalog. It needs no embeddings or vector database, and absorbs the same
// typo classes hybrid search does, just less gracefully.
type Keyword struct {
	records   []domain.Compound
	names     []string
	threshold float64
	log       *zap.Logger
}

// NewKeyword creates a keyword retriever over the given catalog records.
func NewKeyword(records []domain.Compound, threshold float64, log *zap.Logger) *Keyword {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = strings.ToLower(r.IUPACName)
	}
	return &Keyword{records: records, names: names, threshold: threshold, log: log}
}

// Search scores every record by the better of name and formula similarity.
// Subsequence hits (e.g. "ethnl" against "ethanol") are floored at the
// threshold so they survive filtering even with a poor edit-distance score.
func (r *Keyword) Search(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	q := strings.ToLower(strings.TrimSpace(query))
	scores := make([]float64, len(r.records))
	for i, rec := range r.records {
		nameScore := tokenSortRatio(q, strings.ToLower(rec.IUPACName))
		formulaScore := ratio(q, strings.ToLower(rec.Formula))
		scores[i] = nameScore
		if formulaScore > scores[i] {
			scores[i] = formulaScore
		}
	}
	for _, m := range fuzzy.Find(q, r.names) {
		if scores[m.Index] < r.threshold {
			scores[m.Index] = r.threshold
		}
	}
	idxs := make([]int, 0, len(scores))
	for i, s := range scores {
		if s >= r.threshold {
			idxs = append(idxs, i)
		}
	}
	sort.Slice(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, i := range idxs[:topK] {
		results = append(results, domain.SearchResult{Compound: r.records[i], Score: scores[i]})
	}
	r.log.Info("keyword search", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}

// ratio is normalized similarity from Levenshtein distance, in [0, 1].
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// tokenSortRatio compares with words sorted, so "chloride sodium" still
// matches "sodium chloride".
func tokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
