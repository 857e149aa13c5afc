package gemini

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// MockGenerator for testing
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if resp := args.Get(0); resp != nil {
		return resp.(*genai.GenerateContentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSuggester_SuggestContributor(t *testing.T) {
	candidates := []string{"MARIA SOUZA", "JOSÉ PEREIRA"}

	tests := []struct {
		name     string
		response string
		want     string
	}{
		{name: "exact name", response: `{"contributor": "MARIA SOUZA"}`, want: "MARIA SOUZA"},
		{name: "case and accents differ", response: `{"contributor": "jose pereira"}`, want: "JOSÉ PEREIRA"},
		{name: "fenced json", response: "```json\n{\"contributor\": \"MARIA SOUZA\"}\n```", want: "MARIA SOUZA"},
		{name: "name outside the list", response: `{"contributor": "FULANO"}`, want: ""},
		{name: "no plausible match", response: `{"contributor": ""}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			gen := new(MockGenerator)
			gen.On("GenerateContent", mock.Anything, "gemini-test",
				mock.MatchedBy(func(contents []*genai.Content) bool {
					prompt := contents[0].Parts[0].Text
					return strings.Contains(prompt, "PIX RECEBIDO M SOUZA") && strings.Contains(prompt, "2. JOSÉ PEREIRA")
				}),
				mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
					return cfg.ResponseMIMEType == "application/json"
				}),
			).Return(textResponse(tt.response), nil)
			s := NewSuggester(gen, "gemini-test", NewMemoryCache(0), testLogger())

			// Act
			got, err := s.SuggestContributor(context.Background(), "PIX RECEBIDO M SOUZA", candidates)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			gen.AssertExpectations(t)
		})
	}
}

func TestSuggester_SuggestContributor_UsesCache(t *testing.T) {
	// Arrange
	gen := new(MockGenerator)
	gen.On("GenerateContent", mock.Anything, DefaultModel, mock.Anything, mock.Anything).
		Return(textResponse(`{"contributor": "MARIA SOUZA"}`), nil).Once()
	cache := NewMemoryCache(0)
	s := NewSuggester(gen, "", cache, testLogger())
	candidates := []string{"MARIA SOUZA"}

	// Act
	first, err1 := s.SuggestContributor(context.Background(), "PIX RECEBIDO M SOUZA", candidates)
	second, err2 := s.SuggestContributor(context.Background(), "pix recebido m. souza", candidates)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, "MARIA SOUZA", first)
	assert.Equal(t, "MARIA SOUZA", second)
	assert.Equal(t, 1, cache.Len())
	gen.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestSuggester_SuggestContributor_StaleCacheEntryAsksAgain(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(textResponse(`{"contributor": "ANA LIMA"}`), nil)
	cache := NewMemoryCache(0)
	cache.Set("pix ana", "MARIA SOUZA")
	s := NewSuggester(gen, "", cache, testLogger())

	got, err := s.SuggestContributor(context.Background(), "PIX ANA", []string{"ANA LIMA"})

	require.NoError(t, err)
	assert.Equal(t, "ANA LIMA", got)
	gen.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestSuggester_SuggestContributor_NoCandidatesSkipsModel(t *testing.T) {
	gen := new(MockGenerator)
	s := NewSuggester(gen, "", nil, testLogger())

	got, err := s.SuggestContributor(context.Background(), "PIX ANA", nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	gen.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuggester_SuggestContributor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		err     error
		wantErr string
	}{
		{name: "request error", err: errors.New("quota exceeded"), wantErr: "quota exceeded"},
		{name: "empty response", resp: &genai.GenerateContentResponse{}, wantErr: "empty response"},
		{name: "not json", resp: textResponse("MARIA SOUZA"), wantErr: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockGenerator)
			gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tt.resp, tt.err)
			s := NewSuggester(gen, "", nil, testLogger())

			_, err := s.SuggestContributor(context.Background(), "PIX ANA", []string{"ANA LIMA"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	cache := NewMemoryCache(2)

	cache.Set("a", "1")
	cache.Set("b", "2")
	cache.Set("a", "3")
	cache.Set("c", "4")

	_, found := cache.Get("a")
	assert.False(t, found)
	v, found := cache.Get("b")
	assert.True(t, found)
	assert.Equal(t, "2", v)
	assert.Equal(t, 2, cache.Len())
}
