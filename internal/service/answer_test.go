package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/larpforge/storyai/internal/domain"
)

// MockCompletionClient mocks the completion provider client
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, system string, messages []domain.ChatMessage) (string, error) {
	args := m.Called(ctx, system, messages)
	return args.String(0), args.Error(1)
}

func TestSynthesize_BuildsSourcesFromIncluded(t *testing.T) {
	mockClient := new(MockCompletionClient)
	svc := NewSynthesisService(mockClient)

	assembled := &AssembledContext{
		Text: "character: Lady Ashblood\nMatriarch of the family.",
		Included: []*domain.RetrievalResult{
			{
				TypeLabel:  "character",
				Title:      "Lady Ashblood",
				Similarity: 0.87,
				Preview:    "Matriarch of the family.",
			},
			{
				TypeLabel:  "lore",
				Title:      "House Ashblood",
				Similarity: 0.62,
				Preview:    "The family history.",
			},
		},
	}

	mockClient.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("Lady Ashblood leads the family.", nil)

	answer, err := svc.Synthesize(context.Background(), assembled, "who leads the family?")

	require.NoError(t, err)
	assert.Equal(t, "Lady Ashblood leads the family.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, domain.Source{Type: "character", Title: "Lady Ashblood", Similarity: 87, Preview: "Matriarch of the family."}, answer.Sources[0])
	assert.Equal(t, 62, answer.Sources[1].Similarity)
}

func TestSynthesize_SystemPromptContainsContext(t *testing.T) {
	mockClient := new(MockCompletionClient)
	svc := NewSynthesisService(mockClient)

	assembled := &AssembledContext{Text: "lore: Safety Rules\nNo real weapons."}

	mockClient.On("Complete", mock.Anything, mock.MatchedBy(func(system string) bool {
		return strings.HasSuffix(system, assembled.Text) && len(system) > len(assembled.Text)
	}), mock.Anything).Return("ok", nil)

	_, err := svc.Synthesize(context.Background(), assembled, "rules?")

	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestSynthesize_QueryAppendedAfterHistory(t *testing.T) {
	mockClient := new(MockCompletionClient)
	svc := NewSynthesisService(mockClient)

	assembled := &AssembledContext{
		Text: "context",
		History: []domain.ChatMessage{
			{Role: domain.ChatRoleUser, Content: "earlier"},
			{Role: domain.ChatRoleAssistant, Content: "reply"},
		},
	}

	mockClient.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(msgs []domain.ChatMessage) bool {
		return len(msgs) == 3 &&
			msgs[0].Content == "earlier" &&
			msgs[2].Role == domain.ChatRoleUser &&
			msgs[2].Content == "and now?"
	})).Return("answer", nil)

	_, err := svc.Synthesize(context.Background(), assembled, "and now?")

	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestSynthesize_ProviderFailure(t *testing.T) {
	mockClient := new(MockCompletionClient)
	svc := NewSynthesisService(mockClient)

	provErr := domain.NewProviderError("openai", "complete", true, errors.New("rate limited"))
	mockClient.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", provErr)

	answer, err := svc.Synthesize(context.Background(), &AssembledContext{Text: "x"}, "q")

	assert.Nil(t, answer)
	assert.True(t, domain.IsRetryable(err))
}

func TestSynthesize_EmptyContextStillAnswers(t *testing.T) {
	mockClient := new(MockCompletionClient)
	svc := NewSynthesisService(mockClient)

	mockClient.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("I don't have story context for that.", nil)

	answer, err := svc.Synthesize(context.Background(), &AssembledContext{}, "q")

	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	assert.NotEmpty(t, answer.Text)
}
