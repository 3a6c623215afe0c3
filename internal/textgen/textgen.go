package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/coachflow-backend/internal/clients/openai"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// ErrUnavailable is returned when no generation backend is configured.
var ErrUnavailable = errors.New("text generation unavailable")

// PromptContext is the personalization input for one generated message.
type PromptContext struct {
	EngagementType string
	Title          string
	FirstName      string
	LocalTime      string
	CurrentStreak  int
	JourneyPhase   string
	JourneyStep    int
	BadgeCount     int
	Language       string
}

type Generator interface {
	Generate(ctx context.Context, pc PromptContext, maxTokens int, temperature float64) (string, error)
}

type openAIGenerator struct {
	log    *logger.Logger
	client openai.Client
}

func NewOpenAIGenerator(log *logger.Logger, client openai.Client) Generator {
	return &openAIGenerator{log: log.With("service", "TextGenerator"), client: client}
}

func (g *openAIGenerator) Generate(ctx context.Context, pc PromptContext, maxTokens int, temperature float64) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrUnavailable
	}
	text, err := g.client.GenerateText(ctx, openai.TextRequest{
		System:      systemPrompt(pc),
		User:        userPrompt(pc),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", pc.EngagementType, err)
	}
	return text, nil
}

func systemPrompt(pc PromptContext) string {
	lang := pc.Language
	if lang == "" {
		lang = "Dutch"
	}
	return "You are a warm, encouraging dating coach. Write one short message in " + lang +
		" (max 3 sentences, no hashtags, at most one emoji). Address the user by first name when known."
}

func userPrompt(pc PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message kind: %s", pc.EngagementType)
	if pc.Title != "" {
		fmt.Fprintf(&b, " (%s)", pc.Title)
	}
	b.WriteString("\n")
	if pc.FirstName != "" {
		fmt.Fprintf(&b, "First name: %s\n", pc.FirstName)
	}
	if pc.LocalTime != "" {
		fmt.Fprintf(&b, "Local time: %s\n", pc.LocalTime)
	}
	if pc.CurrentStreak > 0 {
		fmt.Fprintf(&b, "Current daily streak: %d days\n", pc.CurrentStreak)
	}
	if pc.JourneyPhase != "" {
		fmt.Fprintf(&b, "Journey position: phase %s, step %d\n", pc.JourneyPhase, pc.JourneyStep)
	}
	if pc.BadgeCount > 0 {
		fmt.Fprintf(&b, "Badges earned: %d\n", pc.BadgeCount)
	}
	return b.String()
}

type unavailable struct{}

// Unavailable is a Generator that always fails, so callers use template content.
func Unavailable() Generator { return unavailable{} }

func (unavailable) Generate(context.Context, PromptContext, int, float64) (string, error) {
	return "", ErrUnavailable
}
