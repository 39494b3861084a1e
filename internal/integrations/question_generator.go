package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

var ErrGeneratorNotConfigured = errors.New("question generator not configured")

type GenerateQuestionsRequest struct {
	ExamType   models.ExamCategory
	Subject    string
	Topic      string
	Count      int
	Difficulty models.DifficultyLevel
	Language   models.Language
}

type GeneratedQuestion struct {
	QuestionText      string                  `json:"questionText"`
	QuestionTextHindi *string                 `json:"questionTextHindi,omitempty"`
	Options           []models.QuestionOption `json:"options"`
	OptionsHindi      []models.QuestionOption `json:"optionsHindi,omitempty"`
	CorrectAnswer     string                  `json:"correctAnswer"`
	Explanation       *string                 `json:"explanation,omitempty"`
	ExplanationHindi  *string                 `json:"explanationHindi,omitempty"`
	Subject           string                  `json:"subject"`
	Topic             string                  `json:"topic,omitempty"`
	Marks             float64                 `json:"marks"`
}

// QuestionGenerator drafts multiple choice questions with an LLM
type QuestionGenerator interface {
	Configured() bool
	Generate(ctx context.Context, req GenerateQuestionsRequest) ([]GeneratedQuestion, error)
}

// NewQuestionGenerator returns a disabled generator when no API key is configured
func NewQuestionGenerator(cfg config.AIConfig, logger *slog.Logger) QuestionGenerator {
	if cfg.APIKey == "" {
		logger.Info("AI question generator not configured")
		return disabledGenerator{}
	}
	return &chatCompletionGenerator{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type disabledGenerator struct{}

// Disabled returns a generator that reports itself as not configured
func Disabled() QuestionGenerator { return disabledGenerator{} }

func (disabledGenerator) Configured() bool { return false }

func (disabledGenerator) Generate(context.Context, GenerateQuestionsRequest) ([]GeneratedQuestion, error) {
	return nil, ErrGeneratorNotConfigured
}

// chatCompletionGenerator talks to any OpenAI-compatible chat completions endpoint
type chatCompletionGenerator struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are an expert question generator for government exams. " +
	"Always return a JSON object with a \"questions\" key containing an array of questions."

func (g *chatCompletionGenerator) Configured() bool { return true }

func (g *chatCompletionGenerator) Generate(ctx context.Context, req GenerateQuestionsRequest) ([]GeneratedQuestion, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.7,
		MaxTokens:      4000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generation request returned %d: %s", resp.StatusCode, snippet)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("generation response has no choices")
	}

	questions, err := parseQuestions(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	valid := questions[:0]
	for _, q := range questions {
		if isWellFormed(q) {
			if q.Marks <= 0 {
				q.Marks = 1
			}
			if q.Subject == "" {
				q.Subject = req.Subject
			}
			if req.Topic != "" {
				q.Topic = req.Topic
			}
			valid = append(valid, q)
		}
	}
	if dropped := len(questions) - len(valid); dropped > 0 {
		g.logger.WarnContext(ctx, "Dropped malformed generated questions", "dropped", dropped)
	}

	return valid, nil
}

// parseQuestions accepts {"questions": [...]} or a bare array
func parseQuestions(content string) ([]GeneratedQuestion, error) {
	var wrapped struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Questions != nil {
		return wrapped.Questions, nil
	}

	var bare []GeneratedQuestion
	if err := json.Unmarshal([]byte(content), &bare); err != nil {
		return nil, fmt.Errorf("generation response is not a question list: %w", err)
	}
	return bare, nil
}

func isWellFormed(q GeneratedQuestion) bool {
	if strings.TrimSpace(q.QuestionText) == "" || len(q.Options) != len(models.OptionLabels) {
		return false
	}
	for i, opt := range q.Options {
		if opt.OptionLabel != models.OptionLabels[i] {
			return false
		}
	}
	return models.IsOptionLabel(q.CorrectAnswer)
}

func buildPrompt(req GenerateQuestionsRequest) string {
	var lang string
	switch req.Language {
	case models.LanguageHindi:
		lang = "Generate all questions, options, and explanations in Hindi language only."
	case models.LanguageBoth:
		lang = "Generate each question with both English and Hindi versions: questionText, questionTextHindi, " +
			"options, optionsHindi, explanation and explanationHindi."
	default:
		lang = "Generate all questions, options, and explanations in English language only."
	}

	subject := req.Subject
	if req.Topic != "" {
		subject = fmt.Sprintf("%s (%s)", req.Subject, req.Topic)
	}

	return fmt.Sprintf(`Generate %d multiple choice questions for %s exam on %s topic with %s difficulty. %s

Return a JSON object {"questions": [...]} where each question has questionText, options
([{"optionLabel":"A","optionText":"..."}, ... "D"]), correctAnswer (one of A, B, C, D),
explanation, subject ("%s") and marks (1). Each question must have exactly 4 options labelled A, B, C, D.`,
		req.Count, req.ExamType, subject, req.Difficulty, lang, req.Subject)
}
