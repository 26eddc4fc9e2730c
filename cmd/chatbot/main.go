package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/chatbot/internal/adapters/http"
	"github.com/PabloGalante/chatbot/internal/adapters/llm"
	memstore "github.com/PabloGalante/chatbot/internal/adapters/storage/memory"
	"github.com/PabloGalante/chatbot/internal/app/conversation"
	"github.com/PabloGalante/chatbot/internal/config"
	"github.com/PabloGalante/chatbot/internal/domain"
	"github.com/PabloGalante/chatbot/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.DefaultSecretsPath); err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cfgErr.Message)
		}
		observability.Logger().Error("chatbot stopped", "error", err)
		os.Exit(1)
	}
}

// run loads the config and serves until ctx is done. A configuration error is
// returned before any listener is opened.
func run(ctx context.Context, secretsPath string) error {
	log := observability.Logger()

	cfg, err := config.Load(secretsPath)
	if err != nil {
		return err
	}

	llmClient, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}

	sessionStore := memstore.NewSessionStore()
	svc := conversation.NewService(llmClient, sessionStore, cfg.ModelName)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpadapter.NewServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("chatbot listening", "addr", cfg.ListenAddr, "model_id", cfg.ModelName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sessionStore.RunJanitor(gctx, time.Minute, cfg.SessionIdleTimeout)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLLMClient(ctx context.Context, cfg *config.Config) (domain.LLMClient, error) {
	if cfg.UseMockLLM {
		observability.Logger().Info("using mock LLM client")
		return llm.NewMockLLM(), nil
	}

	client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("initializing Gemini client: %w", err)
	}
	return client, nil
}
