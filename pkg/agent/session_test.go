package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adforge-ai/adforge-agent/pkg/session"
	"github.com/adforge-ai/adforge-agent/pkg/tools"
	"github.com/adforge-ai/adforge-agent/pkg/types"
)

// scriptedCompleter replays a fixed sequence of responses and records every
// request it receives.
type scriptedCompleter struct {
	responses []openai.ChatCompletionResponse
	err       error
	requests  []openai.ChatCompletionRequest
}

func (s *scriptedCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("script exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func assistantText(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
		}},
	}
}

func assistantToolCall(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   id,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      name,
						Arguments: args,
					},
				}},
			},
		}},
	}
}

func newTestSession(t *testing.T, llm ChatCompleter, reg *tools.Registry) *Session {
	t.Helper()
	if reg == nil {
		reg = tools.NewRegistry()
	}
	s, err := NewSession(&Config{
		LLM:          llm,
		SystemPrompt: "You design advertisements.",
		Registry:     reg,
		History:      session.NewMemoryHistory(),
		SessionID:    "test-session",
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func collect(t *testing.T, ch <-chan types.Fragment) []types.Fragment {
	t.Helper()
	var out []types.Fragment
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, f)
		case <-timeout:
			t.Fatal("fragment channel never closed")
		}
	}
}

func TestSession_PlainReply(t *testing.T) {
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		assistantText("What product are we advertising today?"),
	}}
	s := newTestSession(t, llm, nil)

	ch, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	frags := collect(t, ch)

	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	if frags[0].Kind != types.FragmentSpeech || !strings.Contains(frags[0].Text, "advertising") {
		t.Errorf("unexpected fragment %+v", frags[0])
	}

	req := llm.requests[0]
	if req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Error("first message must be the system prompt")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != openai.ChatMessageRoleUser || last.Content != "hello" {
		t.Errorf("user text must be forwarded verbatim, got %+v", last)
	}
}

func TestSession_ToolRound(t *testing.T) {
	var gotPrompt string
	reg := tools.NewRegistry()
	reg.Register(tools.New("generate_ad_image", "renders an image",
		func(ctx context.Context, req struct {
			Prompt string `json:"prompt"`
		}) (string, error) {
			gotPrompt = req.Prompt
			return "Generated image available at https://img.example/1.png", nil
		}))

	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		assistantToolCall("call_1", "generate_ad_image", `{"prompt":"red sneakers"}`),
		assistantText("Here is the image, take a look."),
	}}
	s := newTestSession(t, llm, reg)

	ch, err := s.Send(context.Background(), "make an image")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	frags := collect(t, ch)

	if gotPrompt != "red sneakers" {
		t.Errorf("tool received prompt %q", gotPrompt)
	}
	if len(frags) != 2 {
		t.Fatalf("expected tool_result then speech, got %d fragments: %+v", len(frags), frags)
	}
	if frags[0].Kind != types.FragmentToolResult || !strings.Contains(frags[0].Text, "img.example") {
		t.Errorf("unexpected tool fragment %+v", frags[0])
	}
	if frags[1].Kind != types.FragmentSpeech {
		t.Errorf("unexpected final fragment %+v", frags[1])
	}

	// The second request must carry the tool result back to the model.
	second := llm.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call_1" {
		t.Errorf("tool result was not fed back: %+v", last)
	}
}

func TestSession_ToolErrorStaysConversational(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.New("store_ad_image", "stores an image",
		func(ctx context.Context, _ struct{}) (string, error) {
			return "", errors.New("fetch returned status 500")
		}))

	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		assistantToolCall("call_1", "store_ad_image", `{}`),
		assistantText("Storing the image failed, let's retry."),
	}}
	s := newTestSession(t, llm, reg)

	ch, _ := s.Send(context.Background(), "store it")
	frags := collect(t, ch)

	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].Err != nil {
		t.Error("tool failures must not terminate the stream")
	}
	if !strings.Contains(frags[0].Text, "500") {
		t.Errorf("tool error text should reach the stream, got %q", frags[0].Text)
	}
}

func TestSession_ModelErrorIsTerminal(t *testing.T) {
	llm := &scriptedCompleter{err: errors.New("rate limited")}
	s := newTestSession(t, llm, nil)

	ch, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	frags := collect(t, ch)

	if len(frags) != 1 || frags[0].Err == nil {
		t.Fatalf("expected a single terminal fragment, got %+v", frags)
	}
	if !strings.Contains(frags[0].Err.Error(), "rate limited") {
		t.Errorf("underlying error lost: %v", frags[0].Err)
	}
}

func TestSession_EmptyChoices(t *testing.T) {
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{{}}}
	s := newTestSession(t, llm, nil)

	ch, _ := s.Send(context.Background(), "hello")
	frags := collect(t, ch)

	if len(frags) != 1 || !errors.Is(frags[0].Err, types.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %+v", frags)
	}
}

func TestSession_HistoryRoundTrip(t *testing.T) {
	hist := session.NewMemoryHistory()
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		assistantText("first reply"),
		assistantText("second reply"),
	}}
	s, err := NewSession(&Config{
		LLM:          llm,
		SystemPrompt: "You design advertisements.",
		Registry:     tools.NewRegistry(),
		History:      hist,
		SessionID:    "test-session",
	})
	if err != nil {
		t.Fatal(err)
	}

	collect(t, mustSend(t, s, "turn one"))
	collect(t, mustSend(t, s, "turn two"))

	entries, _ := hist.Load(context.Background())
	if len(entries) != 4 {
		t.Fatalf("expected 4 persisted messages, got %d", len(entries))
	}

	// The second request must replay the first turn.
	second := llm.requests[1]
	foundReply := false
	for _, m := range second.Messages {
		if m.Content == "first reply" {
			foundReply = true
		}
	}
	if !foundReply {
		t.Error("prior assistant reply was not restored into the second turn")
	}

	var first openai.ChatCompletionMessage
	if err := json.Unmarshal(entries[0], &first); err != nil {
		t.Fatalf("persisted entry is not a message: %v", err)
	}
	if first.Role != openai.ChatMessageRoleUser || first.Content != "turn one" {
		t.Errorf("unexpected first persisted message %+v", first)
	}
}

func mustSend(t *testing.T, s *Session, text string) <-chan types.Fragment {
	t.Helper()
	ch, err := s.Send(context.Background(), text)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	return ch
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(&Config{})
	if !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
