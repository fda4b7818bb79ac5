package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotweaver/plugin/ai"
	"github.com/hrygo/slotweaver/plugin/ai/timeout"
	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/selector"
)

// chatRequest is the part of a chat completion request the tests inspect.
type chatRequest struct {
	Model          string                         `json:"model"`
	Messages       []openai.ChatCompletionMessage `json:"messages"`
	ResponseFormat struct {
		Type       string          `json:"type"`
		JSONSchema json.RawMessage `json:"json_schema"`
	} `json:"response_format"`
}

// fakeChatServer answers every chat completion with content.
func fakeChatServer(t *testing.T, content string, inspect func(req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if inspect != nil {
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{TotalTokens: 42},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestLLMRanker(url string) *LLMRanker {
	return NewLLMRanker(ai.LLMConfig{Provider: "openai", APIKey: "test", BaseURL: url, Model: "test-model"})
}

func TestLLMRanker_Rank(t *testing.T) {
	seenCh := make(chan chatRequest, 1)
	srv := fakeChatServer(t,
		`{"index":1,"start":"2026-03-02T10:30:00Z","rationale":"mid-morning focus block"}`,
		func(req chatRequest) { seenCh <- req })

	p, err := newTestLLMRanker(srv.URL).Rank(context.Background(), testCandidates(), selector.Requirement{
		Title:           "Write report",
		RequiredMinutes: 45,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Index)
	require.NotNil(t, p.Offset)
	assert.Equal(t, 30*time.Minute, *p.Offset)
	assert.Equal(t, "mid-morning focus block", p.Rationale)

	seen := <-seenCh
	assert.Equal(t, "test-model", seen.Model)
	assert.Equal(t, string(openai.ChatCompletionResponseFormatTypeJSONSchema), seen.ResponseFormat.Type)
	assert.Contains(t, string(seen.ResponseFormat.JSONSchema), `"slot_choice"`)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, `"title":"Write report"`)
	assert.Contains(t, seen.Messages[1].Content, `"required_minutes":45`)
}

func TestLLMRanker_CodeFenceAndOffsetTimezone(t *testing.T) {
	srv := fakeChatServer(t, "```json\n{\"index\":2,\"start\":\"2026-03-03T17:15:00+08:00\",\"rationale\":\"ok\"}\n```", nil)

	p, err := newTestLLMRanker(srv.URL).Rank(context.Background(), testCandidates(), selector.Requirement{RequiredMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Index)
	require.NotNil(t, p.Offset)
	assert.Equal(t, 15*time.Minute, *p.Offset)
}

func TestLLMRanker_BadAnswers(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "I think the second one"},
		{"bad start", `{"index":0,"start":"tomorrow morning","rationale":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeChatServer(t, tt.content, nil)
			_, err := newTestLLMRanker(srv.URL).Rank(context.Background(), testCandidates(), selector.Requirement{RequiredMinutes: 30})
			require.Error(t, err)
			assert.True(t, schederrors.IsCode(err, schederrors.ErrCodeInvalidRankingProposal))
		})
	}
}

func TestLLMRanker_OutOfRangeIndexIsLeftToSelector(t *testing.T) {
	srv := fakeChatServer(t, `{"index":9,"start":"2026-03-02T10:30:00Z","rationale":"x"}`, nil)

	p, err := newTestLLMRanker(srv.URL).Rank(context.Background(), testCandidates(), selector.Requirement{RequiredMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, 9, p.Index)
	assert.Nil(t, p.Offset)

	sel, err := selector.NewSelector(newTestLLMRanker(srv.URL)).SelectSingle(context.Background(), testCandidates(), selector.Requirement{RequiredMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, selector.FallbackInvalidProposal, sel.FallbackReason)
	assert.Equal(t, 0, sel.CandidateIndex)
}

func TestLLMRanker_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestLLMRanker(srv.URL).Rank(context.Background(), testCandidates(), selector.Requirement{RequiredMinutes: 30})
	require.Error(t, err)
	assert.True(t, schederrors.IsCode(err, schederrors.ErrCodeRankerUnavailable))
}

func TestParseRankingAnswer(t *testing.T) {
	a, err := parseRankingAnswer("  {\"index\":3,\"start\":\"\",\"rationale\":\"r\"}  ")
	require.NoError(t, err)
	assert.Equal(t, 3, a.Index)
	assert.Empty(t, a.Start)
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", truncateForLog("short", timeout.MaxTruncateLength))

	long := strings.Repeat("x", timeout.MaxTruncateLength+50)
	got := truncateForLog(long, timeout.MaxTruncateLength)
	assert.Len(t, got, timeout.MaxTruncateLength+len("..."))
	assert.True(t, strings.HasSuffix(got, "..."))
}
