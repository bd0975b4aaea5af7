package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chemi/internal/domain"
	"chemi/internal/history"
	"chemi/internal/llm"
)

// scriptedLLM answers each pipeline step from a canned JSON response keyed by
// the schema the step asks for.
type scriptedLLM struct {
	rephrase  string
	relevance string
	extract   string
	generate  string
	requests  []llm.Request
}

func (s *scriptedLLM) GenerateStructured(_ context.Context, req llm.Request, out any) error {
	s.requests = append(s.requests, req)
	var raw string
	switch req.Schema {
	case rephraseSchema:
		raw = s.rephrase
	case relevanceSchema:
		raw = s.relevance
	case extractSchema:
		raw = s.extract
	case generateSchema:
		raw = s.generate
	}
	if raw == "" {
		raw = "{}"
	}
	return json.Unmarshal([]byte(raw), out)
}

type memHistory struct {
	turns map[string][]history.Turn
}

func newMemHistory() *memHistory {
	return &memHistory{turns: map[string][]history.Turn{}}
}

func (m *memHistory) Append(threadID, role, content string) error {
	m.turns[threadID] = append(m.turns[threadID], history.Turn{Role: role, Content: content})
	return nil
}

func (m *memHistory) Recent(threadID string, n int) ([]history.Turn, error) {
	t := m.turns[threadID]
	if len(t) > n {
		t = t[len(t)-n:]
	}
	return t, nil
}

type stubRetriever struct {
	results   []domain.SearchResult
	lastQuery string
}

func (s *stubRetriever) Search(_ context.Context, query string, _ int) ([]domain.SearchResult, error) {
	s.lastQuery = query
	return s.results, nil
}

type stubQuiz struct {
	quiz *domain.Quiz
	args []any
}

func (s *stubQuiz) Generate(_ context.Context, questionType, topic string, level int) (*domain.Quiz, error) {
	s.args = []any{questionType, topic, level}
	return s.quiz, nil
}

type stubSpeaker struct{ path string }

func (s stubSpeaker) Speak(context.Context, string) (string, error) { return s.path, nil }

type stubImages struct{ url string }

func (s stubImages) FirstImageURL(context.Context, string) (string, error) { return s.url, nil }

func newPipeline(gen *scriptedLLM, rtr *stubRetriever, hist HistoryStore) *Pipeline {
	return New(Deps{
		LLM:       gen,
		Retriever: rtr,
		History:   hist,
		Log:       zap.NewNop(),
	})
}

func TestHandleEmptyQuery(t *testing.T) {
	p := newPipeline(&scriptedLLM{}, &stubRetriever{}, nil)
	_, err := p.Handle(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestHandleRefusesOffTopic(t *testing.T) {
	gen := &scriptedLLM{
		relevance: `{"is_chemistry_related": false, "refusal_message": "Mình chỉ trả lời về hóa học thôi."}`,
	}
	hist := newMemHistory()
	p := newPipeline(gen, &stubRetriever{}, hist)

	ans, err := p.Handle(context.Background(), Query{Text: "kể chuyện cười đi", ThreadID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "Mình chỉ trả lời về hóa học thôi.", ans.Text)
	assert.Nil(t, ans.Quiz)
	require.Len(t, hist.turns["t1"], 2)
	assert.Equal(t, "user", hist.turns["t1"][0].Role)
}

func TestHandleInvalidEntity(t *testing.T) {
	gen := &scriptedLLM{
		relevance: `{"is_chemistry_related": true}`,
		extract:   `{"search_query": "", "is_valid": false, "error_message": "Không rõ chất nào."}`,
	}
	p := newPipeline(gen, &stubRetriever{}, nil)

	ans, err := p.Handle(context.Background(), Query{Text: "chất này là gì?"})
	require.NoError(t, err)
	assert.Equal(t, "Không rõ chất nào.", ans.Text)
}

func TestHandleFullFlow(t *testing.T) {
	water := domain.Compound{
		DocID: "water", IUPACName: "water", Formula: "H2O", Type: "compound",
		ImagePath: "https://cdn.example.com/water.png",
		AudioPath: "data/audio/water.wav",
	}
	gen := &scriptedLLM{
		relevance: `{"is_chemistry_related": true}`,
		extract:   `{"search_query": "water", "is_valid": true}`,
		generate: `{"text_response": "Nước có công thức H2O.",
			"selected_doc_id": "water",
			"should_return_image": true,
			"should_return_audio": true}`,
	}
	rtr := &stubRetriever{results: []domain.SearchResult{{Compound: water, Score: 0.9}}}
	hist := newMemHistory()
	p := newPipeline(gen, rtr, hist)

	ans, err := p.Handle(context.Background(), Query{Text: "nước là gì?", ThreadID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, "Nước có công thức H2O.", ans.Text)
	assert.Equal(t, "https://cdn.example.com/water.png", ans.ImageURL)
	assert.Equal(t, "data/audio/water.wav", ans.AudioURL)
	assert.Equal(t, "water", rtr.lastQuery)

	// no history yet, so no rephrase call: relevance, extract, generate
	require.Len(t, gen.requests, 3)
	assert.Len(t, hist.turns["t1"], 2)
}

func TestHandleRephrasesWithHistory(t *testing.T) {
	gen := &scriptedLLM{
		rephrase:  `{"rephrased_query": "nước sôi ở bao nhiêu độ?"}`,
		relevance: `{"is_chemistry_related": true}`,
		extract:   `{"search_query": "water", "is_valid": true}`,
		generate:  `{"text_response": "100 độ C."}`,
	}
	hist := newMemHistory()
	require.NoError(t, hist.Append("t1", "user", "nước là gì?"))
	require.NoError(t, hist.Append("t1", "assistant", "Nước là H2O."))
	p := newPipeline(gen, &stubRetriever{}, hist)

	_, err := p.Handle(context.Background(), Query{Text: "nó sôi ở bao nhiêu độ?", ThreadID: "t1"})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(gen.requests), 2)
	assert.Equal(t, rephraseSchema, gen.requests[0].Schema)
	assert.Contains(t, gen.requests[0].Prompt, "nó sôi ở bao nhiêu độ?")
	assert.Contains(t, gen.requests[0].Prompt, "Nước là H2O.")
	// the rephrased question flows into the relevance check
	assert.Contains(t, gen.requests[1].Prompt, "nước sôi ở bao nhiêu độ?")
}

func TestHandleQuizRequest(t *testing.T) {
	gen := &scriptedLLM{
		relevance: `{"is_chemistry_related": true, "is_quiz_request": true,
			"quiz_type": "listening", "quiz_topic": "ancol", "quiz_level": 2}`,
	}
	quiz := &stubQuiz{quiz: &domain.Quiz{
		QuizID: "ab12cd34", Type: "listening", AudioScript: "I am a colorless liquid.",
	}}
	p := New(Deps{
		LLM:       gen,
		Retriever: &stubRetriever{},
		Quiz:      quiz,
		Speaker:   stubSpeaker{path: "data/tts_output/quiz.wav"},
		Log:       zap.NewNop(),
	})

	ans, err := p.Handle(context.Background(), Query{Text: "cho tôi bài nghe về ancol"})
	require.NoError(t, err)

	require.NotNil(t, ans.Quiz)
	assert.Equal(t, "ab12cd34", ans.Quiz.QuizID)
	assert.Equal(t, "data/tts_output/quiz.wav", ans.AudioURL)
	assert.Equal(t, []any{"listening", "ancol", 2}, quiz.args)
}

func TestHandleQuizTypeDefaultsToMCQ(t *testing.T) {
	gen := &scriptedLLM{
		relevance: `{"is_chemistry_related": true, "is_quiz_request": true, "quiz_type": "essay"}`,
	}
	quiz := &stubQuiz{quiz: &domain.Quiz{QuizID: "x", Type: "mcq"}}
	p := New(Deps{LLM: gen, Retriever: &stubRetriever{}, Quiz: quiz, Log: zap.NewNop()})

	_, err := p.Handle(context.Background(), Query{Text: "quiz"})
	require.NoError(t, err)
	assert.Equal(t, "mcq", quiz.args[0])
}

func TestHandleImageFallback(t *testing.T) {
	noImage := domain.Compound{DocID: "rare", IUPACName: "rarium", Formula: "Rr", Type: "element"}
	gen := &scriptedLLM{
		relevance: `{"is_chemistry_related": true}`,
		extract:   `{"search_query": "rarium", "is_valid": true}`,
		generate: `{"text_response": "...", "selected_doc_id": "rare",
			"should_return_image": true}`,
	}
	p := New(Deps{
		LLM:       gen,
		Retriever: &stubRetriever{results: []domain.SearchResult{{Compound: noImage, Score: 0.8}}},
		Images:    stubImages{url: "https://images.example.com/rarium.png"},
		Log:       zap.NewNop(),
	})

	ans, err := p.Handle(context.Background(), Query{Text: "rarium"})
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.com/rarium.png", ans.ImageURL)
}

func TestHandleImageOnlyQuery(t *testing.T) {
	gen := &scriptedLLM{
		relevance: `{"is_chemistry_related": true}`,
		extract:   `{"search_query": "ethanol", "is_valid": true}`,
		generate:  `{"text_response": "Đây là ethanol."}`,
	}
	p := newPipeline(gen, &stubRetriever{}, nil)

	ans, err := p.Handle(context.Background(), Query{Image: []byte{0x89, 0x50}, ImageMIME: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "Đây là ethanol.", ans.Text)

	// the image must reach the extraction step
	var sawImage bool
	for _, r := range gen.requests {
		if r.Schema == extractSchema && len(r.Image) > 0 {
			sawImage = true
		}
	}
	assert.True(t, sawImage)
}
