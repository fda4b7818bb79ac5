package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/slotweaver/plugin/ai"
	"github.com/hrygo/slotweaver/plugin/ai/timeout"
	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/selector"
)

// LLMRanker asks an OpenAI-compatible chat model to pick a candidate and an
// exact start time. The answer is constrained by a strict JSON schema and
// still validated by the selector.
type LLMRanker struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewLLMRanker creates a ranker from LLM config.
func NewLLMRanker(cfg ai.LLMConfig) *LLMRanker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL

	return &LLMRanker{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// rankingAnswer is the model's JSON answer.
type rankingAnswer struct {
	Index     int    `json:"index"`
	Start     string `json:"start"`
	Rationale string `json:"rationale"`
}

// Rank implements selector.Ranker.
func (r *LLMRanker) Rank(ctx context.Context, candidates []constraint.Candidate, req selector.Requirement) (*selector.Proposal, error) {
	if len(candidates) == 0 {
		return nil, schederrors.NoSlotsAvailable("nothing to rank")
	}

	prompt, err := buildRankingPrompt(candidates, req)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: rankingSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "slot_choice",
				Strict: true,
				Schema: rankingJSONSchema,
			},
		},
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, chatReq)
	latency := time.Since(start)

	if err != nil {
		slog.Error("LLM ranking request failed",
			"error", err,
			"latency_ms", latency.Milliseconds())
		return nil, schederrors.RankerUnavailable("LLM request failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, schederrors.RankerUnavailable("empty response from LLM", nil)
	}

	content := resp.Choices[0].Message.Content
	answer, err := parseRankingAnswer(content)
	if err != nil {
		slog.Warn("failed to parse LLM ranking response",
			"content", truncateForLog(content, timeout.MaxTruncateLength),
			"error", err)
		return nil, schederrors.InvalidRankingProposal(err.Error())
	}

	proposal := &selector.Proposal{Index: answer.Index, Rationale: answer.Rationale}
	if answer.Start != "" && answer.Index >= 0 && answer.Index < len(candidates) {
		at, err := time.Parse(time.RFC3339, answer.Start)
		if err != nil {
			return nil, schederrors.InvalidRankingProposal(fmt.Sprintf("start %q is not RFC3339", answer.Start))
		}
		offset := at.Sub(candidates[answer.Index].Start)
		proposal.Offset = &offset
	}

	slog.Debug("LLM ranking completed",
		"index", proposal.Index,
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return proposal, nil
}

type promptCandidate struct {
	Index           int    `json:"index"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type promptPayload struct {
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Priority        string            `json:"priority,omitempty"`
	DueDate         string            `json:"due_date,omitempty"`
	RequiredMinutes int               `json:"required_minutes"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Candidates      []promptCandidate `json:"candidates"`
}

func buildRankingPrompt(candidates []constraint.Candidate, req selector.Requirement) (string, error) {
	payload := promptPayload{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		RequiredMinutes: req.RequiredMinutes,
		Metadata:        req.Metadata,
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	if req.DueDate != nil {
		payload.DueDate = req.DueDate.In(loc).Format(time.RFC3339)
	}
	for _, f := range extract(candidates, loc) {
		payload.Candidates = append(payload.Candidates, promptCandidate{
			Index:           f.Index,
			Start:           f.Start,
			End:             f.End,
			DurationMinutes: f.DurationMinutes,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ranking prompt: %w", err)
	}
	return string(data), nil
}

var codeFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// parseRankingAnswer parses the model's JSON answer.
func parseRankingAnswer(content string) (*rankingAnswer, error) {
	content = strings.TrimSpace(content)

	// Handle potential markdown code blocks
	if strings.HasPrefix(content, "```") {
		if matches := codeFence.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}

	var answer rankingAnswer
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	return &answer, nil
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

const rankingSystemPrompt = `You place one calendar event. The user message is JSON with the event
requirement and a list of free candidate windows. Pick the candidate that best fits the
event: respect the due date, prefer focused daytime hours for demanding work and keep
required_minutes inside the chosen window. Answer with the candidate index, the exact
RFC3339 start time (in the same offset as the candidate) and one short sentence of rationale.`

// rankingJSONSchema is the strict output schema for slot choice.
var rankingJSONSchema = &jsonSchema{
	Type: "object",
	Properties: map[string]*jsonSchema{
		"index": {
			Type:        "integer",
			Description: "Index of the chosen candidate",
		},
		"start": {
			Type:        "string",
			Description: "RFC3339 start time inside the chosen candidate",
		},
		"rationale": {
			Type:        "string",
			Description: "One short sentence explaining the choice",
		},
	},
	Required:             []string{"index", "start", "rationale"},
	AdditionalProperties: false,
}

// jsonSchema implements json.Marshaler for OpenAI's JSON Schema format.
type jsonSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*jsonSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Description          string                 `json:"description,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

func (s *jsonSchema) MarshalJSON() ([]byte, error) {
	type alias jsonSchema
	return json.Marshal((*alias)(s))
}
