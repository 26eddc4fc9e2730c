package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/chatbot/internal/domain"
)

// MockLLM answers without calling a provider. Useful for local runs and tests.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(_ context.Context, modelID string, transcript []domain.Message) (string, error) {
	if len(transcript) == 0 {
		return "", fmt.Errorf("mock llm: empty transcript")
	}
	last := transcript[len(transcript)-1]
	return fmt.Sprintf("[%s] You said %q (%d messages so far).", modelID, last.Content, len(transcript)), nil
}
