package domain

import (
	"context"
	"strings"
)

// Compound is a single catalog record: a chemical element or compound with
// its IUPAC identification and pre-rendered assets.
type Compound struct {
	Type      string `json:"type"` // "element" or "compound"
	DocID     string `json:"doc_id"`
	IUPACName string `json:"iupac_name"`
	Formula   string `json:"formula"` // symbol for elements, molecular formula otherwise
	ImagePath string `json:"image_path,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`
}

// SearchableText builds the text that gets embedded and indexed for a record.
// Name and formula together allow matching a query by either.
func (c Compound) SearchableText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.IUPACName, c.Formula, c.Type, c.DocID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// SearchResult is a matching catalog record with a relevance score.
type SearchResult struct {
	Compound Compound
	Score    float64
}

// SparseVector is a token-weighted vector in index/value form, as stored by
// the vector database for lexical (BM25-style) matching.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Quiz is a generated practice question in one of four formats.
type Quiz struct {
	QuizID         string          `json:"quiz_id"`
	Type           string          `json:"type"`  // mcq, matching, free_text, listening
	Level          int             `json:"level"` // 1-4
	Topic          string          `json:"topic"`
	QuestionText   string          `json:"question_text"`
	AudioScript    string          `json:"audio_script,omitempty"`
	InputType      string          `json:"input_type"` // radio, select, text
	Options        []string        `json:"options,omitempty"`
	MatchItems     []QuizMatchItem `json:"match_items,omitempty"`
	CheckMethod    string          `json:"check_method"` // exact or fuzzy
	CorrectAnswer  string          `json:"correct_answer"`
	AcceptVariants []string        `json:"accept_variants,omitempty"`
	Explanation    string          `json:"explanation"`
}

// QuizMatchItem is one row of a matching quiz.
type QuizMatchItem struct {
	Left         string   `json:"left"`
	RightOptions []string `json:"right_options"`
}

// Answer is the chatbot's reply for one user turn.
type Answer struct {
	Text     string
	ImageURL string // local path or http(s) URL of a structure image
	AudioURL string // local path or http(s) URL of pronunciation audio
	Quiz     *Quiz
}

// DenseEmbedder produces fixed-dimension semantic embeddings.
type DenseEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// SparseEncoder produces lexical sparse vectors. Prepare must be called with
// the document corpus before encoding; query encoding reuses the vocabulary
// built there.
type SparseEncoder interface {
	Prepare(corpus []string) error
	EncodeDocument(text string) (SparseVector, error)
	EncodeQuery(text string) (SparseVector, error)
}

// VectorStore persists dense+sparse vector pairs with the compound record as
// payload and answers hybrid queries.
type VectorStore interface {
	// Recreate drops and recreates the collection for the given dense dimension.
	Recreate(ctx context.Context, denseDim int) error
	Upsert(ctx context.Context, records []Compound, dense [][]float32, sparse []SparseVector) error
	// Query runs a hybrid dense+sparse search and returns ranked payloads.
	Query(ctx context.Context, dense []float32, sparse SparseVector, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Retriever finds catalog records relevant to a free-text query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}
