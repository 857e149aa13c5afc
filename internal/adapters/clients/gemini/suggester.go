// Package gemini suggests which pending contributor an unidentified bank
// transaction belongs to, using a Gemini model.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/eshaffer321/church-reconciler/internal/domain/textnorm"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// Generator is the part of the genai client the suggester needs;
// *genai.Models implements it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Suggester picks a contributor name for a transaction description
type Suggester struct {
	gen    Generator
	model  string
	cache  Cache
	logger *slog.Logger
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// NewSuggester creates a suggester. cache may be nil.
func NewSuggester(gen Generator, model string, cache Cache, logger *slog.Logger) *Suggester {
	if model == "" {
		model = DefaultModel
	}
	return &Suggester{gen: gen, model: model, cache: cache, logger: logger}
}

type suggestion struct {
	Contributor string `json:"contributor"`
}

// SuggestContributor returns one of candidates, or "" when the model finds
// no plausible match. A name outside candidates is discarded. Answers are
// cached by normalized description while they remain a candidate.
func (s *Suggester) SuggestContributor(ctx context.Context, description string, candidates []string) (string, error) {
	if len(candidates) == 0 || strings.TrimSpace(description) == "" {
		return "", nil
	}

	key := textnorm.NormalizeKey(description)
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			if name, ok := pick(cached, candidates); ok {
				return name, nil
			}
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	resp, err := s.gen.GenerateContent(ctx, s.model, genai.Text(buildPrompt(description, candidates)), config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return "", fmt.Errorf("empty response from model")
	}

	var answer suggestion
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &answer); err != nil {
		return "", fmt.Errorf("failed to parse model response: %w", err)
	}

	name, ok := pick(answer.Contributor, candidates)
	if !ok {
		if answer.Contributor != "" {
			s.logger.Debug("Discarded suggestion outside the candidates", "suggestion", answer.Contributor)
		}
		return "", nil
	}

	if s.cache != nil {
		s.cache.Set(key, name)
	}
	return name, nil
}

// pick returns the candidate matching name after normalization
func pick(name string, candidates []string) (string, bool) {
	key := textnorm.NormalizeKey(name)
	if key == "" {
		return "", false
	}
	for _, c := range candidates {
		if textnorm.NormalizeKey(c) == key {
			return c, true
		}
	}
	return "", false
}

func buildPrompt(description string, candidates []string) string {
	var list strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d. %s\n", i+1, c)
	}

	return fmt.Sprintf(`A Brazilian church treasurer is reconciling a bank statement against the list of expected contributions.

Bank transaction description:
%s

Contributors still without a matching transaction:
%s
Decide which contributor most plausibly made this transaction. Bank descriptions often abbreviate or truncate names and add words such as PIX, TED, RECEBIDO or DEPOSITO.

Answer with a JSON object {"contributor": "<exact name from the list>"}.
If no contributor is plausible, answer {"contributor": ""}.`, description, list.String())
}

// cleanJSON strips Markdown code fences the model may add despite the MIME type
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
