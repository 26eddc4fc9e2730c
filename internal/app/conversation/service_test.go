package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/PabloGalante/chatbot/internal/adapters/llm"
	"github.com/PabloGalante/chatbot/internal/adapters/storage/memory"
	"github.com/PabloGalante/chatbot/internal/app/conversation"
	"github.com/PabloGalante/chatbot/internal/domain"
)

// recordingLLM remembers every transcript it was called with.
type recordingLLM struct {
	calls  [][]domain.Message
	models []string
	err    error
}

func (r *recordingLLM) GenerateReply(_ context.Context, modelID string, transcript []domain.Message) (string, error) {
	r.calls = append(r.calls, transcript)
	r.models = append(r.models, modelID)
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("reply %d", len(r.calls)), nil
}

var ignoreTime = cmpopts.IgnoreFields(domain.Message{}, "CreatedAt")

func TestStartSessionAndSendMessage(t *testing.T) {
	ctx := context.Background()
	svc := conversation.NewService(llm.NewMockLLM(), memory.NewSessionStore(), "")

	session := svc.StartSession(ctx, "s1")
	require.Equal(t, domain.DefaultModelID, session.ModelID)

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "s1", Text: "Hello"})
	require.NoError(t, err)
	require.NotNil(t, out.AssistantMessage)
	assert.NotEmpty(t, out.AssistantMessage.Content)
	assert.Equal(t, domain.RoleUser, out.UserMessage.Role)
}

func TestHelloScenario(t *testing.T) {
	ctx := context.Background()
	gen := &recordingLLM{}
	svc := conversation.NewService(gen, memory.NewSessionStore(), "gemini-test")

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "s1", Text: "Hello"})
	require.NoError(t, err)

	// Before the call the transcript held only the user message.
	require.Len(t, gen.calls, 1)
	wantBefore := []domain.Message{{Role: domain.RoleUser, Content: "Hello"}}
	if diff := cmp.Diff(wantBefore, gen.calls[0], ignoreTime); diff != "" {
		t.Fatalf("transcript sent to provider (-want +got):\n%s", diff)
	}
	assert.Equal(t, "gemini-test", gen.models[0])

	_, msgs, err := svc.GetTranscript(ctx, "s1")
	require.NoError(t, err)
	wantAfter := []domain.Message{
		{Role: domain.RoleUser, Content: "Hello"},
		{Role: domain.RoleAssistant, Content: "reply 1"},
	}
	if diff := cmp.Diff(wantAfter, msgs, ignoreTime); diff != "" {
		t.Fatalf("transcript after turn (-want +got):\n%s", diff)
	}
}

func TestTurnsAlternateAndSendFullTranscript(t *testing.T) {
	ctx := context.Background()
	gen := &recordingLLM{}
	svc := conversation.NewService(gen, memory.NewSessionStore(), "")

	const n = 5
	for i := 0; i < n; i++ {
		_, err := svc.SendMessage(ctx, conversation.SendMessageInput{
			SessionID: "s1",
			Text:      fmt.Sprintf("input %d", i),
		})
		require.NoError(t, err)
	}

	// Call k sees the 2k prior messages plus the new user message.
	require.Len(t, gen.calls, n)
	for k, call := range gen.calls {
		require.Len(t, call, 2*k+1)
		assert.Equal(t, fmt.Sprintf("input %d", k), call[len(call)-1].Content)
	}

	_, msgs, err := svc.GetTranscript(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2*n)
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, m.Role)
			assert.Equal(t, fmt.Sprintf("input %d", i/2), m.Content)
		} else {
			assert.Equal(t, domain.RoleAssistant, m.Role)
			assert.Equal(t, fmt.Sprintf("reply %d", i/2+1), m.Content)
		}
	}
}

func TestStartSessionTwiceKeepsTranscript(t *testing.T) {
	ctx := context.Background()
	svc := conversation.NewService(&recordingLLM{}, memory.NewSessionStore(), "")

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "s1", Text: "Hello"})
	require.NoError(t, err)

	svc.StartSession(ctx, "s1")
	svc.StartSession(ctx, "s1")

	_, msgs, err := svc.GetTranscript(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestProviderFailureKeepsUserMessageOnly(t *testing.T) {
	ctx := context.Background()
	cause := &domain.ProviderError{Code: codes.PermissionDenied, Message: "API key not valid."}
	gen := &recordingLLM{err: cause}
	svc := conversation.NewService(gen, memory.NewSessionStore(), "")

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "s1", Text: "Hello"})
	require.Error(t, err)

	pe, ok := domain.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, codes.PermissionDenied, pe.Code)

	require.NotNil(t, out)
	assert.Equal(t, "Hello", out.UserMessage.Content)
	assert.Nil(t, out.AssistantMessage)

	_, msgs, err := svc.GetTranscript(ctx, "s1")
	require.NoError(t, err)
	want := []domain.Message{{Role: domain.RoleUser, Content: "Hello"}}
	if diff := cmp.Diff(want, msgs, ignoreTime); diff != "" {
		t.Fatalf("transcript after failure (-want +got):\n%s", diff)
	}
}

func TestUntypedFailureIsWrapped(t *testing.T) {
	cause := errors.New("boom")
	svc := conversation.NewService(&recordingLLM{err: cause}, memory.NewSessionStore(), "")

	_, err := svc.SendMessage(context.Background(), conversation.SendMessageInput{SessionID: "s1", Text: "Hello"})

	pe, ok := domain.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unknown, pe.Code)
	assert.ErrorIs(t, err, cause)
}

func TestBlankMessageRejected(t *testing.T) {
	gen := &recordingLLM{}
	store := memory.NewSessionStore()
	svc := conversation.NewService(gen, store, "")

	_, err := svc.SendMessage(context.Background(), conversation.SendMessageInput{SessionID: "s1", Text: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Empty(t, gen.calls)
	assert.Equal(t, 0, store.Len())
}

func TestGetTranscriptUnknownSession(t *testing.T) {
	svc := conversation.NewService(&recordingLLM{}, memory.NewSessionStore(), "")

	_, _, err := svc.GetTranscript(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEndSession(t *testing.T) {
	ctx := context.Background()
	svc := conversation.NewService(&recordingLLM{}, memory.NewSessionStore(), "")
	svc.StartSession(ctx, "s1")

	require.NoError(t, svc.EndSession(ctx, "s1"))
	assert.ErrorIs(t, svc.EndSession(ctx, "s1"), domain.ErrSessionNotFound)
}

// sweepingLLM expires every idle session while the reply is being generated.
type sweepingLLM struct {
	store *memory.SessionStore
	swept int
}

func (s *sweepingLLM) GenerateReply(context.Context, string, []domain.Message) (string, error) {
	s.swept += s.store.Sweep(0)
	return "late reply", nil
}

func TestSweepDuringGenerationKeepsSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	gen := &sweepingLLM{store: store}
	svc := conversation.NewService(gen, store, "")

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "s1", Text: "Hello"})
	require.NoError(t, err)
	require.NotNil(t, out.AssistantMessage)
	assert.Equal(t, 0, gen.swept)

	_, msgs, err := svc.GetTranscript(ctx, "s1")
	require.NoError(t, err)
	want := []domain.Message{
		{Role: domain.RoleUser, Content: "Hello"},
		{Role: domain.RoleAssistant, Content: "late reply"},
	}
	if diff := cmp.Diff(want, msgs, ignoreTime); diff != "" {
		t.Fatalf("transcript after swept turn (-want +got):\n%s", diff)
	}
}

func TestHasSession(t *testing.T) {
	ctx := context.Background()
	svc := conversation.NewService(&recordingLLM{}, memory.NewSessionStore(), "")

	assert.False(t, svc.HasSession("s1"))
	svc.StartSession(ctx, "s1")
	assert.True(t, svc.HasSession("s1"))
}
