package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adforge-ai/adforge-agent/pkg/session"
	"github.com/adforge-ai/adforge-agent/pkg/tools"
	"github.com/adforge-ai/adforge-agent/pkg/types"
)

// ChatCompleter is the slice of the OpenAI client the session needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures a conversation session. Everything here is fixed at
// construction; changing the prompt or tool list requires a new session.
type Config struct {
	LLM          ChatCompleter
	Model        string
	SystemPrompt string
	Registry     *tools.Registry
	History      session.History
	SessionID    string

	// MaxToolRounds bounds the reason/tool-call cycles per user turn.
	MaxToolRounds int
}

// Session drives the reasoning loop for one conversation: it forwards user
// text to the model, executes requested tools, feeds results back, and
// streams tagged fragments to the caller.
type Session struct {
	llm           ChatCompleter
	model         string
	systemPrompt  string
	registry      *tools.Registry
	history       session.History
	sessionID     string
	maxToolRounds int
}

// NewSession validates the configuration and builds a session.
func NewSession(cfg *Config) (*Session, error) {
	if cfg == nil || cfg.LLM == nil {
		return nil, fmt.Errorf("%w: chat completer is required", types.ErrInvalidConfig)
	}
	if cfg.SystemPrompt == "" {
		return nil, fmt.Errorf("%w: system prompt is required", types.ErrInvalidConfig)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: tool registry is required", types.ErrInvalidConfig)
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("%w: history store is required", types.ErrInvalidConfig)
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	maxRounds := cfg.MaxToolRounds
	if maxRounds == 0 {
		maxRounds = 8
	}

	return &Session{
		llm:           cfg.LLM,
		model:         model,
		systemPrompt:  cfg.SystemPrompt,
		registry:      cfg.Registry,
		history:       cfg.History,
		sessionID:     cfg.SessionID,
		maxToolRounds: maxRounds,
	}, nil
}

// Send submits one user turn and returns a stream of response fragments.
// The channel is closed when the turn completes; a fragment with Err set is
// terminal.
func (s *Session) Send(ctx context.Context, text string) (<-chan types.Fragment, error) {
	restored, err := s.restore(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan types.Fragment)
	go s.run(ctx, restored, text, out)
	return out, nil
}

// Close releases the history store.
func (s *Session) Close() error {
	return s.history.Close()
}

func (s *Session) run(ctx context.Context, restored []openai.ChatCompletionMessage, text string, out chan<- types.Fragment) {
	defer close(out)

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}

	messages := make([]openai.ChatCompletionMessage, 0, len(restored)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.systemPrompt,
	})
	messages = append(messages, restored...)
	messages = append(messages, userMsg)

	newMsgs := []openai.ChatCompletionMessage{userMsg}
	defer func() { s.persist(ctx, newMsgs) }()

	toolDefs := s.openaiTools()

	for round := 0; round < s.maxToolRounds; round++ {
		resp, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    s.model,
			Messages: messages,
			Tools:    toolDefs,
		})
		if err != nil {
			s.emit(ctx, out, types.Fragment{Err: fmt.Errorf("model request failed: %w", err)})
			return
		}
		if len(resp.Choices) == 0 {
			s.emit(ctx, out, types.Fragment{Err: types.ErrEmptyResponse})
			return
		}

		msg := resp.Choices[0].Message
		messages = append(messages, msg)
		newMsgs = append(newMsgs, msg)

		if msg.Content != "" {
			if !s.emit(ctx, out, types.Fragment{Kind: types.FragmentSpeech, Text: msg.Content}) {
				return
			}
		}

		if len(msg.ToolCalls) == 0 {
			return
		}

		for _, tc := range msg.ToolCalls {
			result, err := s.registry.Invoke(ctx, tc.Function.Name, json.RawMessage(tc.Function.Arguments))
			if err != nil {
				// Tool failures stay conversational: the model sees the
				// error text and relays it to the user.
				result = fmt.Sprintf("Tool %s failed: %s", tc.Function.Name, err)
			}

			if !s.emit(ctx, out, types.Fragment{Kind: types.FragmentToolResult, Text: result}) {
				return
			}

			toolMsg := openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			}
			messages = append(messages, toolMsg)
			newMsgs = append(newMsgs, toolMsg)
		}
	}

	s.emit(ctx, out, types.Fragment{Err: fmt.Errorf("agent exceeded %d tool rounds in one turn", s.maxToolRounds)})
}

func (s *Session) emit(ctx context.Context, out chan<- types.Fragment, f types.Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// restore loads the persisted conversation for this session identifier.
// Entries that no longer parse are skipped rather than wedging the session.
func (s *Session) restore(ctx context.Context) ([]openai.ChatCompletionMessage, error) {
	entries, err := s.history.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", s.sessionID, err)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(entries))
	for _, e := range entries {
		var m openai.ChatCompletionMessage
		if err := json.Unmarshal(e, &m); err != nil {
			log.Printf("⚠️ Skipping unreadable history entry for session %s: %v", s.sessionID, err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *Session) persist(ctx context.Context, msgs []openai.ChatCompletionMessage) {
	entries := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			log.Printf("⚠️ Failed to serialize a history entry: %v", err)
			continue
		}
		entries = append(entries, b)
	}
	if err := s.history.Append(ctx, entries...); err != nil {
		log.Printf("⚠️ Failed to persist session %s history: %v", s.sessionID, err)
	}
}

// openaiTools converts the registry into the wire tool descriptors.
func (s *Session) openaiTools() []openai.Tool {
	list := s.registry.List()
	defs := make([]openai.Tool, 0, len(list))
	for _, t := range list {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return defs
}
