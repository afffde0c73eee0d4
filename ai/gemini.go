package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/coatcard/coatcard-ai/models"
)

// ErrNoCandidates means the provider answered without a usable reply.
var ErrNoCandidates = errors.New("no valid response from AI")

// Provider is the external generative-AI collaborator. The last turn of the
// history is the message being asked; everything before it is context.
type Provider interface {
	GenerateReply(ctx context.Context, history []models.Turn) ([]models.Part, error)
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

// Client is the provider used by the chat handlers. main wires the Gemini
// implementation; tests install fakes.
var Client Provider

type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: cl, modelName: modelName}, nil
}

func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiProvider) GenerateReply(ctx context.Context, history []models.Turn) ([]models.Part, error) {
	if len(history) == 0 {
		return nil, errors.New("empty history")
	}

	m := g.client.GenerativeModel(g.modelName)
	cs := m.StartChat()
	for _, turn := range history[:len(history)-1] {
		cs.History = append(cs.History, toContent(turn))
	}

	last := history[len(history)-1]
	resp, err := cs.SendMessage(ctx, toParts(last)...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	return firstCandidateParts(resp)
}

func (g *GeminiProvider) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	resp, err := m.GenerateContent(ctx, genai.Text(TitlePrompt(firstMessage)))
	if err != nil {
		return "", fmt.Errorf("gemini title: %w", err)
	}

	parts, err := firstCandidateParts(resp)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(strings.ReplaceAll(parts[0].Text, `"`, ""))
	if title == "" {
		return "", ErrNoCandidates
	}
	return title, nil
}

func toContent(turn models.Turn) *genai.Content {
	return &genai.Content{Role: turn.Role, Parts: toParts(turn)}
}

func toParts(turn models.Turn) []genai.Part {
	parts := make([]genai.Part, 0, len(turn.Parts))
	for _, p := range turn.Parts {
		parts = append(parts, genai.Text(p.Text))
	}
	return parts
}

func firstCandidateParts(resp *genai.GenerateContentResponse) ([]models.Part, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoCandidates
	}

	var parts []models.Part
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, models.Part{Text: string(t)})
		}
	}
	if len(parts) == 0 {
		return nil, ErrNoCandidates
	}
	return parts, nil
}
