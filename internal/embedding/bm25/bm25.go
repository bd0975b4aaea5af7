// Package bm25 implements the sparse half of hybrid search: BM25-weighted
// token vectors over the compound catalog, for exact name/formula matching.
package bm25

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"chemi/internal/domain"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Encoder builds a vocabulary over the catalog corpus and produces sparse
// vectors. Document vectors carry BM25 term weights, query vectors carry IDF
// weights, so the dot product of the two is the BM25 score.
type Encoder struct {
	vocabulary map[string]uint32
	idf        []float32
	avgDocLen  float64
	prepared   bool

	tokenPattern   *regexp.Regexp
	elementPattern *regexp.Regexp
}

// NewEncoder creates an unprepared BM25 encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		vocabulary:     make(map[string]uint32),
		tokenPattern:   regexp.MustCompile(`[\p{L}\p{N}]+`),
		elementPattern: regexp.MustCompile(`\p{L}+\p{N}*`),
	}
}

// Prepare builds the vocabulary and IDF values from the document corpus.
func (e *Encoder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for BM25 prepare")
	}
	df := make(map[string]int)
	totalLen := 0
	for _, text := range corpus {
		tokens := e.tokenize(text)
		totalLen += len(tokens)
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	e.vocabulary = make(map[string]uint32, len(terms))
	e.idf = make([]float32, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = uint32(i)
		// Smoothed IDF, always positive.
		e.idf[i] = float32(math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5)))
	}
	e.avgDocLen = float64(totalLen) / n
	e.prepared = true
	return nil
}

// EncodeDocument produces the BM25-weighted sparse vector for a record's
// searchable text.
func (e *Encoder) EncodeDocument(text string) (domain.SparseVector, error) {
	if !e.prepared {
		return domain.SparseVector{}, errors.New("bm25 encoder not prepared")
	}
	tokens := e.tokenize(text)
	tf := make(map[uint32]int)
	for _, tok := range tokens {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	docLen := float64(len(tokens))
	vec := domain.SparseVector{
		Indices: make([]uint32, 0, len(tf)),
		Values:  make([]float32, 0, len(tf)),
	}
	for _, idx := range sortedIndices(tf) {
		f := float64(tf[idx])
		w := f * (k1 + 1) / (f + k1*(1-b+b*docLen/e.avgDocLen))
		vec.Indices = append(vec.Indices, idx)
		vec.Values = append(vec.Values, e.idf[idx]*float32(w))
	}
	return vec, nil
}

// EncodeQuery produces the IDF-weighted sparse vector for a query. Tokens
// outside the vocabulary are dropped.
func (e *Encoder) EncodeQuery(text string) (domain.SparseVector, error) {
	if !e.prepared {
		return domain.SparseVector{}, errors.New("bm25 encoder not prepared")
	}
	seen := make(map[uint32]struct{})
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			seen[idx] = struct{}{}
		}
	}
	tf := make(map[uint32]int, len(seen))
	for idx := range seen {
		tf[idx] = 1
	}
	vec := domain.SparseVector{
		Indices: make([]uint32, 0, len(seen)),
		Values:  make([]float32, 0, len(seen)),
	}
	for _, idx := range sortedIndices(tf) {
		vec.Indices = append(vec.Indices, idx)
		vec.Values = append(vec.Values, e.idf[idx])
	}
	return vec, nil
}

// tokenize lowercases and splits into letter/digit runs. Formula-like tokens
// additionally emit their element-count fragments, so "C2H6O" also yields
// "c2", "h6" and "o" and matches queries written either way.
func (e *Encoder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	var out []string
	for _, tok := range raw {
		out = append(out, tok)
		if !strings.ContainsAny(tok, "0123456789") {
			continue
		}
		frags := e.elementPattern.FindAllString(tok, -1)
		if len(frags) > 1 {
			out = append(out, frags...)
		}
	}
	return out
}

func sortedIndices(tf map[uint32]int) []uint32 {
	idxs := make([]uint32, 0, len(tf))
	for idx := range tf {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	return idxs
}
