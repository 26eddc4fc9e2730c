package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"

	"github.com/PabloGalante/chatbot/internal/domain"
)

// GeminiConfig holds what the Gemini API client needs.
type GeminiConfig struct {
	APIKey string

	// BaseURL and HTTPClient override the endpoint, mostly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates an LLMClient backed by the Gemini API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "GEMINI_API_KEY", Message: "API key is required"}
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// GenerateReply implements domain.LLMClient. Every message of the transcript
// is sent, in order, and the reply text is returned.
func (g *GeminiClient) GenerateReply(
	ctx context.Context,
	modelID string,
	transcript []domain.Message,
) (string, error) {
	if len(transcript) == 0 {
		return "", &domain.ProviderError{
			Code:    codes.InvalidArgument,
			Message: "transcript is empty",
		}
	}

	res, err := g.client.Models.GenerateContent(ctx, modelID, toContents(transcript), nil)
	if err != nil {
		return "", classifyError(err)
	}

	text := res.Text()
	if text == "" {
		return "", &domain.ProviderError{
			Code:    codes.Internal,
			Message: "provider returned empty text",
		}
	}

	return text, nil
}

func toContents(transcript []domain.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(transcript))
	for _, m := range transcript {
		contents = append(contents, genai.NewContentFromText(m.Content, toGenaiRole(m.Role)))
	}
	return contents
}

func toGenaiRole(r domain.Role) genai.Role {
	if r == domain.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}
