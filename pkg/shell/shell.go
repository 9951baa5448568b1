package shell

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"

	"github.com/adforge-ai/adforge-agent/pkg/types"
)

// Mode selects how the shell drives the agent.
type Mode int

const (
	ModeChat Mode = iota
	ModeAuto
)

const separator = "-------------------"

// DefaultAutoInterval is the pause between autonomous instructions.
const DefaultAutoInterval = 10 * time.Second

// Shell connects a runtime to the terminal. It owns the chat loop and the
// autonomous loop but not the runtime's lifecycle.
type Shell struct {
	runtime types.Runtime
	out     io.Writer
}

// New builds a shell over the given runtime. A nil writer means stdout.
func New(rt types.Runtime, out io.Writer) *Shell {
	if out == nil {
		out = os.Stdout
	}
	return &Shell{runtime: rt, out: out}
}

// parseMode maps user input onto a mode. Accepts the menu number or the
// mode name, case-insensitively.
func parseMode(input string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "chat":
		return ModeChat, nil
	case "2", "auto", "autonomous":
		return ModeAuto, nil
	default:
		return 0, fmt.Errorf("unknown mode %q, expected 1 (chat) or 2 (auto)", input)
	}
}

// PromptMode asks the operator which mode to run.
func PromptMode() (Mode, error) {
	prompt := promptui.Prompt{
		Label: "Select mode: 1) chat  2) auto",
		Validate: func(input string) error {
			_, err := parseMode(input)
			return err
		},
	}
	answer, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("mode selection failed: %w", err)
	}
	return parseMode(answer)
}

// lineReader is the slice of readline the chat loop consumes.
type lineReader interface {
	Readline() (string, error)
}

// RunChat reads user lines until "exit", Ctrl-D, or a cancelled context.
// A failed turn ends the session with an error so the process exits
// non-zero; there is no automatic restart.
func (s *Shell) RunChat(ctx context.Context) error {
	rl, err := readline.New("You: ")
	if err != nil {
		return fmt.Errorf("failed to open the terminal: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(s.out, "Chat with the agent. Type 'exit' to quit.")

	return s.chatLoop(ctx, rl)
}

func (s *Shell) chatLoop(ctx context.Context, rl lineReader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		done, err := s.handleLine(ctx, line)
		if err != nil {
			return fmt.Errorf("turn failed: %w", err)
		}
		if done {
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		}
	}
}

// RunAuto feeds the fixed instruction to the runtime on a fixed cadence.
// Any failure aborts the loop so the process can exit non-zero.
func (s *Shell) RunAuto(ctx context.Context, instruction string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultAutoInterval
	}
	log.Printf("🤖 Autonomous mode, one instruction every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.handleLine(ctx, instruction); err != nil {
			return fmt.Errorf("autonomous turn failed: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// handleLine processes one line of input. An "exit" line, in any casing,
// ends the session without touching the runtime; everything else is
// forwarded verbatim and the response fragments are printed as they arrive.
func (s *Shell) handleLine(ctx context.Context, line string) (done bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false, nil
	}
	if strings.EqualFold(trimmed, "exit") {
		return true, nil
	}

	ch, err := s.runtime.Send(ctx, line)
	if err != nil {
		return false, err
	}

	for f := range ch {
		if f.Err != nil {
			return false, f.Err
		}
		switch f.Kind {
		case types.FragmentToolResult:
			fmt.Fprintf(s.out, "[tool] %s\n", f.Text)
		default:
			fmt.Fprintf(s.out, "Agent: %s\n", f.Text)
		}
		fmt.Fprintln(s.out, separator)
	}
	return false, nil
}
