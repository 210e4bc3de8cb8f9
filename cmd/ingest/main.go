package main

import (
	"context"
	"crypto/tls"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/mediconnect/assistant-platform/internal/config"
	"github.com/mediconnect/assistant-platform/internal/conversation"
	"github.com/mediconnect/assistant-platform/internal/ingest"
	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// ingest loads text and markdown files from a directory into the knowledge
// corpus. Unchanged files are skipped via the content-hash manifest; pass
// -rebuild to replace the corpus wholesale.
func main() {
	var (
		dir     = flag.String("dir", "./knowledge", "directory of .txt/.md documents to ingest")
		rebuild = flag.Bool("rebuild", false, "replace the corpus instead of appending")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)

	repo := conversation.NewRedisKnowledgeRepository(redisClient)
	manifest := ingest.NewRedisManifestStore(redisClient)
	chunker := ingest.NewChunker(ingest.DefaultChunkSize, ingest.DefaultChunkOverlap)
	ingestor := ingest.NewIngestor(repo, manifest, chunker, logger)

	documents, err := loadDocuments(*dir)
	if err != nil {
		logger.Error("failed to read documents", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(documents) == 0 {
		logger.Warn("no documents found", "dir", *dir)
		return
	}

	ctx := context.Background()

	if *rebuild {
		if err := ingestor.RebuildCorpus(ctx, cfg.KnowledgeCorpusID, documents); err != nil {
			logger.Error("rebuild failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ingested, skipped := 0, 0
	for docID, text := range documents {
		result, err := ingestor.IngestDocument(ctx, cfg.KnowledgeCorpusID, docID, text)
		if err != nil {
			logger.Error("ingest failed", "doc_id", docID, "error", err)
			os.Exit(1)
		}
		if result.Skipped {
			skipped++
		} else {
			ingested++
		}
	}
	logger.Info("ingest complete", "ingested", ingested, "skipped", skipped)
}

func loadDocuments(dir string) (map[string]string, error) {
	documents := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		documents[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}
