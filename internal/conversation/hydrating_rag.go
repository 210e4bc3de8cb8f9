package conversation

import (
	"context"
	"sync"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// HydratingRAGRetriever wraps a MemoryRAGStore and keeps it current by
// embedding any new documents appended to the KnowledgeRepository.
//
// Documents are append-only per corpus, so each process can embed new docs
// on demand without cross-process shared memory. A repository version bump
// forces a full re-hydration.
type HydratingRAGRetriever struct {
	repo   KnowledgeRepository
	store  *MemoryRAGStore
	logger *logging.Logger

	hydratedCounts sync.Map // corpusID -> int
	hydratedVers   sync.Map // corpusID -> int64
	locks          sync.Map // corpusID -> *sync.Mutex

	versioner KnowledgeVersioner
}

func NewHydratingRAGRetriever(ctx context.Context, repo KnowledgeRepository, store *MemoryRAGStore, logger *logging.Logger) *HydratingRAGRetriever {
	if repo == nil {
		panic("conversation: knowledge repo cannot be nil")
	}
	if store == nil {
		panic("conversation: rag store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	h := &HydratingRAGRetriever{
		repo:   repo,
		store:  store,
		logger: logger,
	}
	if versioner, ok := repo.(KnowledgeVersioner); ok {
		h.versioner = versioner
	}

	// Seed hydration state from what the store has actually embedded. A
	// fresh process starts with an empty store, so the first query pulls
	// the whole committed corpus in through ensureHydrated.
	if docsByCorpus, err := repo.LoadAll(ctx); err == nil {
		for corpusID := range docsByCorpus {
			h.hydratedCounts.Store(corpusID, store.DocumentCount(corpusID))
			if h.versioner != nil {
				if version, err := h.versioner.GetVersion(ctx, corpusID); err == nil {
					h.hydratedVers.Store(corpusID, version)
				}
			}
		}
	} else {
		logger.Warn("failed to initialize rag hydration state", "error", err)
	}

	return h
}

func (h *HydratingRAGRetriever) Query(ctx context.Context, corpusID string, query string, topK int) ([]Source, error) {
	if err := h.ensureHydrated(ctx, ""); err != nil {
		h.logger.Warn("failed to hydrate global knowledge", "error", err)
	}
	if corpusID != "" {
		if err := h.ensureHydrated(ctx, corpusID); err != nil {
			h.logger.Warn("failed to hydrate corpus knowledge", "corpus_id", corpusID, "error", err)
		}
	}
	return h.store.Query(ctx, corpusID, query, topK)
}

func (h *HydratingRAGRetriever) ensureHydrated(ctx context.Context, corpusID string) error {
	lock := h.lockForCorpus(corpusID)
	lock.Lock()
	defer lock.Unlock()

	docs, err := h.repo.GetDocuments(ctx, corpusID)
	if err != nil {
		return err
	}

	if h.versioner != nil {
		version, err := h.versioner.GetVersion(ctx, corpusID)
		if err != nil {
			return err
		}
		storedVersion := int64(0)
		if v, ok := h.hydratedVers.Load(corpusID); ok {
			if n, ok := v.(int64); ok {
				storedVersion = n
			}
		}
		if version != storedVersion {
			if err := h.store.ReplaceDocuments(ctx, corpusID, docs); err != nil {
				return err
			}
			h.hydratedCounts.Store(corpusID, len(docs))
			h.hydratedVers.Store(corpusID, version)
			return nil
		}
	}

	start := 0
	if v, ok := h.hydratedCounts.Load(corpusID); ok {
		if n, ok := v.(int); ok {
			start = n
		}
	}
	// A shrunk list means the repository was rewritten underneath us.
	if start > len(docs) {
		if err := h.store.ReplaceDocuments(ctx, corpusID, docs); err != nil {
			return err
		}
		h.hydratedCounts.Store(corpusID, len(docs))
		return nil
	}
	if start >= len(docs) {
		return nil
	}

	if err := h.store.AddDocuments(ctx, corpusID, docs[start:]); err != nil {
		return err
	}
	h.hydratedCounts.Store(corpusID, len(docs))
	return nil
}

func (h *HydratingRAGRetriever) lockForCorpus(corpusID string) *sync.Mutex {
	lockAny, _ := h.locks.LoadOrStore(corpusID, &sync.Mutex{})
	return lockAny.(*sync.Mutex)
}
