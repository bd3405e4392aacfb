// Package scoring grades interview answers and generates question sets
// through the OpenAI chat-completions API. It is the production Oracle
// implementation; it fails closed whenever the model returns nothing usable.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prepwise/interviewd/internal/interview"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// NewClientWithBaseURL points the client at an alternative endpoint, used by
// tests and OpenAI-compatible gateways.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned no content")
	}
	return parsed.Choices[0].Message.Content, nil
}

type evaluation struct {
	OverallScore int    `json:"overallScore"`
	Clarity      int    `json:"clarity"`
	Completeness int    `json:"completeness"`
	Relevance    int    `json:"relevance"`
	Suggestion   string `json:"suggestion"`
}

const evaluateSystemPrompt = `You are an interview coach grading a candidate's answer.
Respond with a single JSON object and nothing else, with integer fields
"overallScore", "clarity", "completeness", "relevance" (each 0-10) and a
string field "suggestion" with one concrete improvement.`

// EvaluateAnswer grades answer against question. Every score is clamped to
// [0, 10]; unusable model output is an error.
func (c *Client) EvaluateAnswer(ctx context.Context, question, answer string) (interview.Result, error) {
	user := fmt.Sprintf("Question: %s\n\nAnswer: %s", question, answer)

	content, err := c.chat(ctx, evaluateSystemPrompt, user, 500)
	if err != nil {
		return interview.Result{}, err
	}

	var ev evaluation
	if err := json.Unmarshal([]byte(extractJSON(content)), &ev); err != nil {
		return interview.Result{}, fmt.Errorf("parsing evaluation %q: %w", content, err)
	}

	return interview.Result{
		Overall:      clampScore(ev.OverallScore),
		Clarity:      clampScore(ev.Clarity),
		Completeness: clampScore(ev.Completeness),
		Relevance:    clampScore(ev.Relevance),
		Suggestion:   ev.Suggestion,
	}, nil
}

const generateSystemPrompt = `You write interview questions.
Respond with a single JSON array of question strings and nothing else.`

// GenerateQuestions produces p.NumQuestions interview questions for the
// given parameters.
func (c *Client) GenerateQuestions(ctx context.Context, p interview.CreateParams) ([]string, error) {
	user := fmt.Sprintf(
		"Write %d %s-difficulty %s interview questions about %s for a %s role in the %s industry.",
		p.NumQuestions, p.Difficulty, p.Type, p.Topic, p.Role, p.Industry)

	content, err := c.chat(ctx, generateSystemPrompt, user, 2000)
	if err != nil {
		return nil, err
	}

	var questions []string
	if err := json.Unmarshal([]byte(extractJSON(content)), &questions); err != nil {
		return nil, fmt.Errorf("parsing questions %q: %w", content, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("model returned no questions")
	}
	return questions, nil
}

// extractJSON strips markdown code fences the model sometimes wraps its
// output in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}
