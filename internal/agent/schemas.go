package agent

import "google.golang.org/genai"

type rephraseResult struct {
	RephrasedQuery string `json:"rephrased_query"`
}

type relevanceResult struct {
	IsChemistryRelated bool   `json:"is_chemistry_related"`
	IsQuizRequest      bool   `json:"is_quiz_request"`
	QuizType           string `json:"quiz_type"`
	QuizTopic          string `json:"quiz_topic"`
	QuizLevel          int    `json:"quiz_level"`
	RefusalMessage     string `json:"refusal_message"`
}

type extractResult struct {
	SearchQuery  string `json:"search_query"`
	IsValid      bool   `json:"is_valid"`
	ErrorMessage string `json:"error_message"`
}

type generateResult struct {
	TextResponse      string `json:"text_response"`
	SelectedDocID     string `json:"selected_doc_id"`
	ShouldReturnImage bool   `json:"should_return_image"`
	ShouldReturnAudio bool   `json:"should_return_audio"`
}

var rephraseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"rephrased_query": {Type: genai.TypeString},
	},
	Required: []string{"rephrased_query"},
}

var relevanceSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"is_chemistry_related": {Type: genai.TypeBoolean},
		"is_quiz_request":      {Type: genai.TypeBoolean},
		"quiz_type":            {Type: genai.TypeString},
		"quiz_topic":           {Type: genai.TypeString},
		"quiz_level":           {Type: genai.TypeInteger},
		"refusal_message":      {Type: genai.TypeString},
	},
	Required: []string{"is_chemistry_related", "is_quiz_request"},
}

var extractSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"search_query":  {Type: genai.TypeString},
		"is_valid":      {Type: genai.TypeBoolean},
		"error_message": {Type: genai.TypeString},
	},
	Required: []string{"search_query", "is_valid"},
}

var generateSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"text_response":       {Type: genai.TypeString},
		"selected_doc_id":     {Type: genai.TypeString},
		"should_return_image": {Type: genai.TypeBoolean},
		"should_return_audio": {Type: genai.TypeBoolean},
	},
	Required: []string{"text_response"},
}
