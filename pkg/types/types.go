package types

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrNotImage             = errors.New("fetched payload is not an image")
	ErrToolNotFound         = errors.New("tool not found")
	ErrEmptyResponse        = errors.New("model returned an empty response")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// FragmentKind tags a response fragment as either agent speech or the
// result of a tool invocation.
type FragmentKind string

const (
	FragmentSpeech     FragmentKind = "speech"
	FragmentToolResult FragmentKind = "tool_result"
)

// Fragment is a single chunk of a streamed agent response. A fragment with
// Err set is terminal: the stream is closed right after it.
type Fragment struct {
	Kind FragmentKind
	Text string
	Err  error
}

// Runtime is the reasoning/tool-orchestration capability the shell talks to.
// Send opens a fresh streamed response for one user turn; conversation
// memory persists across calls under the runtime's session identifier.
type Runtime interface {
	Send(ctx context.Context, text string) (<-chan Fragment, error)
	Close() error
}
