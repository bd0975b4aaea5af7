// Package quiz generates practice questions for the chemistry tutor.
package quiz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chemi/internal/domain"
	"chemi/internal/llm"
)

// StructuredGenerator is the LLM capability the generator needs.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req llm.Request, out any) error
}

// Generator produces quizzes through the LLM.
type Generator struct {
	llm StructuredGenerator
	log *zap.Logger
}

// NewGenerator creates a quiz generator.
func NewGenerator(gen StructuredGenerator, log *zap.Logger) *Generator {
	return &Generator{llm: gen, log: log}
}

var levelDescriptions = map[int]string{
	1: "Nhận biết - câu hỏi đơn giản, trực tiếp",
	2: "Thông hiểu - cần hiểu khái niệm cơ bản",
	3: "Vận dụng - áp dụng kiến thức vào bài toán",
	4: "Nâng cao - hợp chất phức tạp, đồng phân, phức chất",
}

// Generate asks the LLM for one question of the given type, topic and level,
// then fills in the metadata the model is not trusted with (id, type, level,
// topic, input/check defaults).
func (g *Generator) Generate(ctx context.Context, questionType, topic string, level int) (*domain.Quiz, error) {
	if topic == "" {
		topic = "random"
	}
	desc, ok := levelDescriptions[level]
	if !ok {
		level = 1
		desc = levelDescriptions[1]
	}
	prompt := fmt.Sprintf(`Tạo 1 câu hỏi %s về "%s"
Mức độ: %s
Chương trình: Hóa học THPT Việt Nam (lớp 10-12)

Trả về JSON theo format đã định. CHỈ JSON, không có text khác.`, questionType, topic, desc)

	var q domain.Quiz
	err := g.llm.GenerateStructured(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
	}, &q)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	q.QuizID = uuid.NewString()[:8]
	q.Type = questionType
	q.Level = level
	q.Topic = topic
	ApplyDefaults(&q)

	g.log.Info("quiz generated",
		zap.String("type", questionType), zap.String("topic", topic), zap.Int("level", level))
	return &q, nil
}

// ApplyDefaults fills input_type and check_method when the model omitted
// them: radio for mcq/listening, text otherwise; fuzzy checking only for
// free-text answers.
func ApplyDefaults(q *domain.Quiz) {
	if q.InputType == "" {
		switch q.Type {
		case "mcq", "listening":
			q.InputType = "radio"
		case "matching":
			q.InputType = "select"
		default:
			q.InputType = "text"
		}
	}
	if q.CheckMethod == "" {
		if q.Type == "free_text" {
			q.CheckMethod = "fuzzy"
		} else {
			q.CheckMethod = "exact"
		}
	}
}
