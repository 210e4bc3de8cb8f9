package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/mediconnect/assistant-platform/cmd/mainconfig"
	"github.com/mediconnect/assistant-platform/internal/api/router"
	"github.com/mediconnect/assistant-platform/internal/archive"
	appconfig "github.com/mediconnect/assistant-platform/internal/config"
	"github.com/mediconnect/assistant-platform/internal/conversation"
	"github.com/mediconnect/assistant-platform/internal/observability/metrics"
	"github.com/mediconnect/assistant-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting assistant-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)

	var openaiClient *openai.Client
	if cfg.OpenAIAPIKey != "" {
		openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	}

	// Embeddings prefer OpenAI; Bedrock Titan is the alternative when no
	// OpenAI key is configured.
	var embedder conversation.EmbeddingClient
	embedModel := cfg.EmbeddingModel
	if openaiClient != nil {
		embedder = conversation.NewOpenAIEmbeddingClient(openaiClient)
	} else {
		embedder = conversation.NewBedrockEmbeddingClient(bedrockruntime.NewFromConfig(awsCfg))
		embedModel = cfg.BedrockEmbedModel
	}

	primary, chatModel, err := buildPrimaryLLM(ctx, cfg, awsCfg, openaiClient)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}

	var fallback conversation.LLMClient
	if cfg.GeminiAPIKey != "" && cfg.LLMProvider != "gemini" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("failed to build gemini fallback", "error", err)
		} else {
			fallback = gemini
		}
	}

	llm := conversation.LLMClient(conversation.NewTimeoutLLMClient(primary, cfg.LLMTimeout))
	llm = conversation.NewRetryLLMClient(llm, cfg.LLMRetryMaxAttempts, cfg.LLMRetryBaseDelay, logger)
	llm = conversation.NewFallbackLLMClient(llm, fallback, logger)

	knowledgeRepo := conversation.NewRedisKnowledgeRepository(redisClient)
	ragStore := conversation.NewMemoryRAGStore(embedder, embedModel, logger,
		conversation.WithFetchK(cfg.RetrievalFetchK),
		conversation.WithMinScore(cfg.RetrievalMinScore),
	)
	hydrating := conversation.NewHydratingRAGRetriever(ctx, knowledgeRepo, ragStore, logger)

	retriever := conversation.NewKnowledgeRetriever(
		hydrating,
		conversation.DefaultStaticKnowledge(),
		cfg.KnowledgeCorpusID,
		cfg.RetrievalTopK,
		logger,
	)

	classifier := conversation.NewClassifier(llm, chatModel, conversation.DefaultPolicyTable(), logger)
	synthesizer := conversation.NewResponseSynthesizer(llm, chatModel, logger)
	followups := conversation.NewFollowupGenerator(llm, chatModel, logger)
	summarizer := conversation.NewDocumentSummarizer(llm, chatModel, logger)

	sessions := conversation.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	guard := conversation.NewOutputGuard(logger)
	pipelineMetrics := metrics.NewPipelineMetrics(nil)

	engineOpts := []conversation.EngineOption{
		conversation.WithMetrics(pipelineMetrics),
	}
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		engineOpts = append(engineOpts, conversation.WithTurnRecorder(conversation.NewPostgresTurnStore(pool)))
	}
	if cfg.ArchiveBucket != "" {
		archiveStore := archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger)
		engineOpts = append(engineOpts, conversation.WithTurnArchiver(archiveStore))
	}

	engine := conversation.NewEngine(
		classifier, retriever, synthesizer, followups, summarizer,
		sessions, guard, logger, engineOpts...,
	)

	var queue conversation.QueueClient
	if cfg.UseMemoryQueue || cfg.ChatQueueURL == "" {
		queue = conversation.NewMemoryQueue(256)
	} else {
		queue = conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ChatQueueURL)
	}
	dispatcher := conversation.NewDispatcher(engine, queue, logger,
		conversation.WithWorkerCount(cfg.WorkerCount))

	chatHandler := conversation.NewHandler(dispatcher, knowledgeRepo, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// buildPrimaryLLM selects the configured completion provider and returns the
// client plus the model name to request from it.
func buildPrimaryLLM(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, openaiClient *openai.Client) (conversation.LLMClient, string, error) {
	switch cfg.LLMProvider {
	case "bedrock":
		if cfg.BedrockModelID == "" {
			return nil, "", errors.New("BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)), cfg.BedrockModelID, nil
	case "gemini":
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, "", err
		}
		return client, cfg.GeminiModelID, nil
	default:
		if openaiClient == nil {
			return nil, "", errors.New("OPENAI_API_KEY is required for the openai provider")
		}
		return conversation.NewOpenAILLMClient(openaiClient), cfg.OpenAIChatModel, nil
	}
}
