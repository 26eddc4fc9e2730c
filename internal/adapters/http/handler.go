package httpadapter

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/chatbot/internal/app/conversation"
	"github.com/PabloGalante/chatbot/internal/domain"
	"github.com/PabloGalante/chatbot/internal/observability"
)

//go:embed templates/chat.html
var templateFS embed.FS

var chatTemplate = template.Must(template.ParseFS(templateFS, "templates/chat.html"))

const (
	pageTitle         = "Chatbot"
	inputPlaceholder  = "What is up?"
	maxRequestBodyLen = 1 << 20
)

type Server struct {
	svc      *conversation.Service
	markdown *markdownRenderer
}

func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{
		svc:      svc,
		markdown: newMarkdownRenderer(),
	}
	mux := http.NewServeMux()

	// chat page
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /chat", s.handleChatForm)

	// JSON API used by the page script
	mux.HandleFunc("GET /api/transcript", s.handleGetTranscript)
	mux.HandleFunc("POST /api/messages", s.handleSendMessage)
	mux.HandleFunc("DELETE /api/session", s.handleEndSession)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return chainMiddlewares(mux, withLogging, withSession(svc.HasSession), withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
}

type transcriptResponse struct {
	SessionID string            `json:"session_id"`
	ModelID   string            `json:"model_id"`
	Messages  []messageResponse `json:"messages"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage      messageResponse  `json:"user_message"`
	AssistantMessage *messageResponse `json:"assistant_message,omitempty"`
	Error            string           `json:"error,omitempty"`
	Code             string           `json:"code,omitempty"`
}

type pageData struct {
	Title       string
	ModelID     string
	Placeholder string
	Messages    []messageView
	Error       string
}

type messageView struct {
	Role string
	HTML template.HTML
}

// ─────────────────────────────────────────────
// HTML handlers
// ─────────────────────────────────────────────

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.svc.StartSession(r.Context(), sessionID(r))
	s.renderPage(w, r, http.StatusOK, session, "")
}

func (s *Server) handleChatForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyLen)
	prompt := r.PostFormValue("prompt")

	if strings.TrimSpace(prompt) == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	_, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID(r),
		Text:      prompt,
	})
	if err != nil {
		status, msg := chatFormError(err)
		if status == http.StatusInternalServerError {
			observability.LoggerFromContext(r.Context()).Error("chat turn failed", "error", err)
		}
		session := s.svc.StartSession(r.Context(), sessionID(r))
		s.renderPage(w, r, status, session, msg)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// chatFormError picks the status and banner text shown in place of the reply.
func chatFormError(err error) (int, string) {
	if pe, ok := domain.AsProviderError(err); ok {
		return http.StatusBadGateway, pe.Message
	}
	if errors.Is(err, domain.ErrEmptyMessage) {
		return http.StatusBadRequest, "Please type a message first."
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again."
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, session *domain.Session, errMsg string) {
	transcript := session.Transcript()
	views := make([]messageView, 0, len(transcript))
	for _, m := range transcript {
		views = append(views, messageView{Role: string(m.Role), HTML: s.markdown.Render(m.Content)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := chatTemplate.Execute(w, pageData{
		Title:       pageTitle,
		ModelID:     session.ModelID,
		Placeholder: inputPlaceholder,
		Messages:    views,
		Error:       errMsg,
	})
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("render chat page", "error", err)
	}
}

// ─────────────────────────────────────────────
// JSON handlers
// ─────────────────────────────────────────────

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	session := s.svc.StartSession(r.Context(), sessionID(r))

	writeJSON(w, http.StatusOK, transcriptResponse{
		SessionID: string(session.ID),
		ModelID:   session.ModelID,
		Messages:  s.toMessagesResponse(session.Transcript()),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyLen)).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID(r),
		Text:      req.Text,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyMessage) {
			badRequest(w, "text is required")
			return
		}
		pe, ok := domain.AsProviderError(err)
		if !ok || out == nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, sendMessageResponse{
			UserMessage: s.toMessageResponse(out.UserMessage),
			Error:       pe.Message,
			Code:        pe.Code.String(),
		})
		return
	}

	resp := sendMessageResponse{UserMessage: s.toMessageResponse(out.UserMessage)}
	if out.AssistantMessage != nil {
		m := s.toMessageResponse(*out.AssistantMessage)
		resp.AssistantMessage = &m
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	err := s.svc.EndSession(r.Context(), sessionID(r))
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Conversion Helpers
// ─────────────────────────────────────────────

func (s *Server) toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		Role:      string(m.Role),
		Content:   m.Content,
		HTML:      string(s.markdown.Render(m.Content)),
		CreatedAt: m.CreatedAt,
	}
}

func (s *Server) toMessagesResponse(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.toMessageResponse(m))
	}
	return out
}

func sessionID(r *http.Request) domain.SessionID {
	return domain.SessionID(observability.SessionIDFromContext(r.Context()))
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
