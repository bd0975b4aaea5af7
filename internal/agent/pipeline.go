// Package agent runs the chat pipeline: rephrase, relevance gate, entity
// extraction, retrieval, answer generation. Quiz requests branch off after
// the relevance gate.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"chemi/internal/domain"
	"chemi/internal/history"
	"chemi/internal/llm"
)

// ErrEmptyQuery is returned when a query has neither text nor an image.
var ErrEmptyQuery = errors.New("agent: empty query")

const (
	historyDepth  = 6
	refusalText   = "Xin lỗi, mình chỉ hỗ trợ các câu hỏi về hóa học thôi. Bạn thử hỏi về một nguyên tố hay hợp chất nhé!"
	invalidText   = "Mình chưa nhận ra chất hóa học nào trong câu hỏi. Bạn nêu rõ tên hoặc công thức giúp mình nhé."
	quizIntroText = "Đây là câu hỏi luyện tập dành cho bạn. Chúc bạn làm bài tốt!"
)

// StructuredGenerator is the LLM capability the pipeline depends on.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req llm.Request, out any) error
}

// HistoryStore records and replays conversation turns per thread.
type HistoryStore interface {
	Append(threadID, role, content string) error
	Recent(threadID string, n int) ([]history.Turn, error)
}

// QuizGenerator produces a practice question.
type QuizGenerator interface {
	Generate(ctx context.Context, questionType, topic string, level int) (*domain.Quiz, error)
}

// Speaker renders text to an audio file and returns its path.
type Speaker interface {
	Speak(ctx context.Context, text string) (string, error)
}

// ImageFinder looks up a structure image URL for a keyword.
type ImageFinder interface {
	FirstImageURL(ctx context.Context, keyword string) (string, error)
}

// Deps wires the pipeline. Speaker and Images are optional; History may be
// nil when threads are not persisted.
type Deps struct {
	LLM       StructuredGenerator
	Retriever domain.Retriever
	History   HistoryStore
	Quiz      QuizGenerator
	Speaker   Speaker
	Images    ImageFinder
	TopK      int
	Log       *zap.Logger
}

// Pipeline handles one user turn end to end.
type Pipeline struct {
	deps Deps
}

// New creates a pipeline. TopK defaults to 3.
func New(deps Deps) *Pipeline {
	if deps.TopK <= 0 {
		deps.TopK = 3
	}
	return &Pipeline{deps: deps}
}

// Query is one user turn: text, an image, or both.
type Query struct {
	Text      string
	Image     []byte
	ImageMIME string
	ThreadID  string
}

// Handle runs the full pipeline for a query and returns the answer.
func (p *Pipeline) Handle(ctx context.Context, q Query) (domain.Answer, error) {
	if q.Text == "" && len(q.Image) == 0 {
		return domain.Answer{}, ErrEmptyQuery
	}
	d := p.deps

	userText := q.Text
	if userText == "" {
		userText = "Chất trong hình này là gì?"
	}

	turns := p.recentTurns(q.ThreadID)
	question := p.rephrase(ctx, turns, userText)

	rel, err := p.checkRelevance(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}
	if rel.IsQuizRequest {
		ans, err := p.handleQuiz(ctx, rel)
		if err != nil {
			return domain.Answer{}, err
		}
		p.record(q.ThreadID, userText, ans.Text)
		return ans, nil
	}
	if !rel.IsChemistryRelated {
		msg := rel.RefusalMessage
		if msg == "" {
			msg = refusalText
		}
		p.record(q.ThreadID, userText, msg)
		return domain.Answer{Text: msg}, nil
	}

	var extract extractResult
	err = d.LLM.GenerateStructured(ctx, llm.Request{
		System:    extractSystem,
		Prompt:    extractPrompt(question, len(q.Image) > 0),
		Image:     q.Image,
		ImageMIME: q.ImageMIME,
		Schema:    extractSchema,
	}, &extract)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("extract entity: %w", err)
	}
	if !extract.IsValid || extract.SearchQuery == "" {
		msg := extract.ErrorMessage
		if msg == "" {
			msg = invalidText
		}
		p.record(q.ThreadID, userText, msg)
		return domain.Answer{Text: msg}, nil
	}

	results, err := d.Retriever.Search(ctx, extract.SearchQuery, d.TopK)
	if err != nil {
		d.Log.Warn("retrieval failed, answering without context",
			zap.String("query", extract.SearchQuery), zap.Error(err))
		results = nil
	}

	var gen generateResult
	err = d.LLM.GenerateStructured(ctx, llm.Request{
		System:      generateSystem,
		Prompt:      generatePrompt(question, results),
		Schema:      generateSchema,
		Temperature: 0.3,
	}, &gen)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	ans := domain.Answer{Text: gen.TextResponse}
	p.attachAssets(ctx, &ans, gen, results)
	p.record(q.ThreadID, userText, ans.Text)
	return ans, nil
}

func (p *Pipeline) rephrase(ctx context.Context, turns []history.Turn, question string) string {
	if len(turns) == 0 {
		return question
	}
	var out rephraseResult
	err := p.deps.LLM.GenerateStructured(ctx, llm.Request{
		System: rephraseSystem,
		Prompt: rephrasePrompt(turns, question),
		Schema: rephraseSchema,
	}, &out)
	if err != nil || out.RephrasedQuery == "" {
		p.deps.Log.Warn("rephrase failed, using original question", zap.Error(err))
		return question
	}
	return out.RephrasedQuery
}

func (p *Pipeline) checkRelevance(ctx context.Context, question string) (relevanceResult, error) {
	var out relevanceResult
	err := p.deps.LLM.GenerateStructured(ctx, llm.Request{
		System: relevanceSystem,
		Prompt: relevancePrompt(question),
		Schema: relevanceSchema,
	}, &out)
	if err != nil {
		return relevanceResult{}, fmt.Errorf("relevance check: %w", err)
	}
	return out, nil
}

func (p *Pipeline) handleQuiz(ctx context.Context, rel relevanceResult) (domain.Answer, error) {
	if p.deps.Quiz == nil {
		return domain.Answer{Text: "Tính năng luyện tập hiện chưa bật."}, nil
	}
	qt := rel.QuizType
	switch qt {
	case "mcq", "matching", "free_text", "listening":
	default:
		qt = "mcq"
	}
	quiz, err := p.deps.Quiz.Generate(ctx, qt, rel.QuizTopic, rel.QuizLevel)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("quiz: %w", err)
	}
	ans := domain.Answer{Text: quizIntroText, Quiz: quiz}
	if qt == "listening" && quiz.AudioScript != "" && p.deps.Speaker != nil {
		path, err := p.deps.Speaker.Speak(ctx, quiz.AudioScript)
		if err != nil {
			p.deps.Log.Warn("listening quiz audio failed", zap.Error(err))
		} else {
			ans.AudioURL = path
		}
	}
	return ans, nil
}

// attachAssets resolves image and audio for the record the model selected.
// A missing structure image falls back to a web search when that is wired.
func (p *Pipeline) attachAssets(ctx context.Context, ans *domain.Answer, gen generateResult, results []domain.SearchResult) {
	if gen.SelectedDocID == "" {
		return
	}
	var selected *domain.Compound
	for i := range results {
		if results[i].Compound.DocID == gen.SelectedDocID {
			selected = &results[i].Compound
			break
		}
	}
	if selected == nil {
		return
	}
	if gen.ShouldReturnImage {
		switch {
		case selected.ImagePath != "":
			ans.ImageURL = selected.ImagePath
		case p.deps.Images != nil:
			url, err := p.deps.Images.FirstImageURL(ctx, selected.IUPACName+" chemical structure")
			if err != nil {
				p.deps.Log.Warn("image fallback failed",
					zap.String("doc_id", selected.DocID), zap.Error(err))
			} else {
				ans.ImageURL = url
			}
		}
	}
	if gen.ShouldReturnAudio && selected.AudioPath != "" {
		ans.AudioURL = selected.AudioPath
	}
}

func (p *Pipeline) recentTurns(threadID string) []history.Turn {
	if p.deps.History == nil || threadID == "" {
		return nil
	}
	turns, err := p.deps.History.Recent(threadID, historyDepth)
	if err != nil {
		p.deps.Log.Warn("history read failed", zap.String("thread", threadID), zap.Error(err))
		return nil
	}
	return turns
}

func (p *Pipeline) record(threadID, user, assistant string) {
	if p.deps.History == nil || threadID == "" {
		return
	}
	if err := p.deps.History.Append(threadID, "user", user); err != nil {
		p.deps.Log.Warn("history write failed", zap.Error(err))
		return
	}
	if err := p.deps.History.Append(threadID, "assistant", assistant); err != nil {
		p.deps.Log.Warn("history write failed", zap.Error(err))
	}
}
