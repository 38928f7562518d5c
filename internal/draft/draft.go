// Package draft drafts portfolio project descriptions with a text-generation
// service.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	ErrTitleRequired    = errors.New("please enter a project title first")
	ErrInFlight         = errors.New("a description is already being generated")
	ErrUnavailable      = errors.New("description generation is not configured")
	ErrGenerationFailed = errors.New("failed to generate description")
	ErrPromptTooLong    = errors.New("prompt is too long")
)

// MaxTerminalPrompt bounds visitor terminal prompts, in runes.
const MaxTerminalPrompt = 500

// Completer is a request/response text-completion service.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Assistant turns a title and tags into a short description. At most one
// draft per target runs at a time.
type Assistant struct {
	completer Completer
	model     string
	timeout   time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewAssistant returns an assistant. A nil completer makes every draft fail
// with ErrUnavailable. A zero timeout leaves deadlines to the transport.
func NewAssistant(completer Completer, model string, timeout time.Duration, logger *zap.Logger) *Assistant {
	return &Assistant{
		completer: completer,
		model:     model,
		timeout:   timeout,
		logger:    logger.Named("draft"),
		inFlight:  make(map[string]struct{}),
	}
}

func (a *Assistant) Enabled() bool { return a.completer != nil }

func (a *Assistant) Model() string { return a.model }

// Prompt builds the request sent to the completion service.
func Prompt(title string, tags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a concise and professional project description for a web project titled %q", title)
	if len(tags) > 0 {
		fmt.Fprintf(&b, " that uses the following technologies: %s", strings.Join(tags, ", "))
	}
	b.WriteString(". The description should be suitable for a portfolio, be around 150 characters, and have a slightly technical/cyberpunk flair.")
	return b.String()
}

// Draft returns a trimmed description. Any service error, or an empty
// completion, is reported as ErrGenerationFailed.
func (a *Assistant) Draft(ctx context.Context, target, title string, tags []string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if a.completer == nil {
		return "", ErrUnavailable
	}
	if !a.acquire(target) {
		return "", ErrInFlight
	}
	defer a.release(target)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := a.completer.Complete(ctx, a.model, Prompt(title, tags))
	if err != nil {
		a.logger.Error("Description generation failed",
			zap.String("target", target),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	a.logger.Info("Description generated",
		zap.String("target", target),
		zap.Int("length", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// TerminalPrompt frames a visitor prompt for the home page terminal.
func TerminalPrompt(prompt string) string {
	return fmt.Sprintf("You are a helpful AI assistant in a simulated 'hacker' terminal. "+
		"Respond concisely and with a slightly technical/cyberpunk flair. The user's prompt is: %q", prompt)
}

// Reply answers a visitor terminal prompt. An empty prompt returns "" and no
// error; callers rate limit visitors themselves.
func (a *Assistant) Reply(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil
	}
	if utf8.RuneCountInString(prompt) > MaxTerminalPrompt {
		return "", ErrPromptTooLong
	}
	if a.completer == nil {
		return "", ErrUnavailable
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.completer.Complete(ctx, a.model, TerminalPrompt(prompt))
	if err != nil {
		a.logger.Error("Terminal reply failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return text, nil
}

func (a *Assistant) acquire(target string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inFlight[target]; busy {
		return false
	}
	a.inFlight[target] = struct{}{}
	return true
}

func (a *Assistant) release(target string) {
	a.mu.Lock()
	delete(a.inFlight, target)
	a.mu.Unlock()
}
