package conversation

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/PabloGalante/chatbot/internal/domain"
	"github.com/PabloGalante/chatbot/internal/observability"
)

type Service struct {
	llm          domain.LLMClient
	sessionStore domain.SessionStore
	defaultModel string
	now          func() time.Time
}

func NewService(
	llm domain.LLMClient,
	sessionStore domain.SessionStore,
	defaultModel string,
) *Service {
	if defaultModel == "" {
		defaultModel = domain.DefaultModelID
	}

	return &Service{
		llm:          llm,
		sessionStore: sessionStore,
		defaultModel: defaultModel,
		now:          time.Now,
	}
}

// StartSession returns the session for id, creating an empty one on first use.
// Calling it again never resets an existing transcript.
func (s *Service) StartSession(ctx context.Context, id domain.SessionID) *domain.Session {
	session, created := s.sessionStore.Initialize(id, s.defaultModel)
	if created {
		observability.LoggerFromContext(ctx).Info("session started",
			"session_id", session.ID,
			"model_id", session.ModelID,
		)
	}
	return session
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	UserMessage      domain.Message
	AssistantMessage *domain.Message // nil when the turn failed
}

// SendMessage runs one turn: the user message is appended, the whole transcript
// goes to the provider, and the reply is appended on success.
//
// When the provider fails the returned output still carries the user message,
// which stays in the transcript so the user can retry, and the error is a
// *domain.ProviderError.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, domain.ErrEmptyMessage
	}

	session := s.StartSession(ctx, in.SessionID)
	endTurn := s.sessionStore.BeginTurn(session.ID)
	defer endTurn()

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"model_id", session.ModelID,
	)

	userMsg := session.Append(domain.RoleUser, in.Text, s.now())
	out := &SendMessageOutput{UserMessage: userMsg}

	transcript := session.Transcript()
	log.Info("generating reply", "transcript_len", len(transcript))

	start := s.now()
	reply, err := s.llm.GenerateReply(ctx, session.ModelID, transcript)
	if err != nil {
		pe, ok := domain.AsProviderError(err)
		if !ok {
			pe = &domain.ProviderError{Code: codes.Unknown, Message: err.Error(), Err: err}
		}
		log.Error("generation failed", "error", pe, "code", pe.Code.String())
		return out, pe
	}

	assistantMsg := session.Append(domain.RoleAssistant, reply, s.now())
	out.AssistantMessage = &assistantMsg

	log.Info("turn completed",
		"elapsed_ms", s.now().Sub(start).Milliseconds(),
		"transcript_len", session.Len(),
	)

	return out, nil
}

// GetTranscript returns the session and a copy of its messages.
func (s *Service) GetTranscript(
	ctx context.Context,
	sessionID domain.SessionID,
) (*domain.Session, []domain.Message, error) {
	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to get session",
			"session_id", sessionID,
			"error", err,
		)
		return nil, nil, err
	}

	return session, session.Transcript(), nil
}

// HasSession reports whether id names a live session.
func (s *Service) HasSession(id domain.SessionID) bool {
	_, err := s.sessionStore.GetSession(id)
	return err == nil
}

// EndSession discards the session and its transcript.
func (s *Service) EndSession(ctx context.Context, sessionID domain.SessionID) error {
	if err := s.sessionStore.DeleteSession(sessionID); err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Info("session ended", "session_id", sessionID)
	return nil
}
