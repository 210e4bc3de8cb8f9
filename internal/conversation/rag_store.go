package conversation

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// Document is one attributable knowledge snippet.
type Document struct {
	SourceID string `json:"source_id"`
	Content  string `json:"content"`
}

// RAGRetriever exposes the query capability the knowledge retriever needs.
type RAGRetriever interface {
	Query(ctx context.Context, corpusID string, query string, topK int) ([]Source, error)
}

// RAGIngestor describes how corpus knowledge is ingested.
type RAGIngestor interface {
	AddDocuments(ctx context.Context, corpusID string, docs []Document) error
}

// RAGReplacer replaces a corpus wholesale, used when a repository version bump
// invalidates incremental hydration.
type RAGReplacer interface {
	ReplaceDocuments(ctx context.Context, corpusID string, docs []Document) error
}

// MemoryRAGStore keeps embeddings in memory and retrieves with cosine
// scoring followed by maximal marginal relevance reranking, so the evidence
// handed to synthesis is both relevant and non-redundant.
type MemoryRAGStore struct {
	client   EmbeddingClient
	model    string
	fetchK   int
	lambda   float64
	minScore float64
	logger   *logging.Logger

	mu        sync.RWMutex
	documents map[string][]ragDocument // keyed by corpusID ("" for global)
}

type ragDocument struct {
	sourceID  string
	content   string
	embedding []float32
}

// MemoryRAGStoreOption tunes retrieval behavior.
type MemoryRAGStoreOption func(*MemoryRAGStore)

// WithFetchK sets the candidate pool size considered before MMR reranking.
func WithFetchK(fetchK int) MemoryRAGStoreOption {
	return func(s *MemoryRAGStore) {
		if fetchK > 0 {
			s.fetchK = fetchK
		}
	}
}

// WithMMRLambda balances relevance against diversity; 1 is pure relevance.
func WithMMRLambda(lambda float64) MemoryRAGStoreOption {
	return func(s *MemoryRAGStore) {
		if lambda >= 0 && lambda <= 1 {
			s.lambda = lambda
		}
	}
}

// WithMinScore drops candidates scoring below the threshold outright.
func WithMinScore(minScore float64) MemoryRAGStoreOption {
	return func(s *MemoryRAGStore) {
		if minScore >= 0 {
			s.minScore = minScore
		}
	}
}

func NewMemoryRAGStore(client EmbeddingClient, model string, logger *logging.Logger, opts ...MemoryRAGStoreOption) *MemoryRAGStore {
	if client == nil {
		panic("conversation: embedding client cannot be nil")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &MemoryRAGStore{
		client:    client,
		model:     model,
		fetchK:    50,
		lambda:    0.5,
		minScore:  0.25,
		logger:    logger,
		documents: make(map[string][]ragDocument),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddDocuments embeds and stores the provided documents for a corpus.
func (s *MemoryRAGStore) AddDocuments(ctx context.Context, corpusID string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	vectors, err := s.client.Embed(ctx, s.model, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(docs) {
		return errors.New("conversation: embedding response size mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		s.documents[corpusID] = append(s.documents[corpusID], ragDocument{
			sourceID:  doc.SourceID,
			content:   doc.Content,
			embedding: vectors[i],
		})
	}
	return nil
}

// DocumentCount reports how many documents are embedded for a corpus.
func (s *MemoryRAGStore) DocumentCount(corpusID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents[corpusID])
}

// ReplaceDocuments overwrites the corpus with the provided documents.
func (s *MemoryRAGStore) ReplaceDocuments(ctx context.Context, corpusID string, docs []Document) error {
	s.mu.Lock()
	s.documents[corpusID] = nil
	s.mu.Unlock()
	return s.AddDocuments(ctx, corpusID, docs)
}

// Query returns up to topK diversified sources for a corpus plus any global
// documents. An empty result means the corpus had nothing relevant.
func (s *MemoryRAGStore) Query(ctx context.Context, corpusID string, query string, topK int) ([]Source, error) {
	if topK <= 0 {
		topK = 10
	}

	vectors, err := s.client.Embed(ctx, s.model, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	queryVec := vectors[0]

	s.mu.RLock()
	var candidates []ragDocument
	candidates = append(candidates, s.documents[corpusID]...)
	if corpusID != "" {
		candidates = append(candidates, s.documents[""]...)
	}
	s.mu.RUnlock()
	if len(candidates) == 0 {
		return nil, nil
	}

	type scored struct {
		score float64
		doc   ragDocument
	}
	results := make([]scored, 0, len(candidates))
	for _, doc := range candidates {
		score := cosineSimilarity(queryVec, doc.embedding)
		if score < s.minScore {
			continue
		}
		results = append(results, scored{score: score, doc: doc})
	}
	if len(results) == 0 {
		return nil, nil
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > s.fetchK {
		results = results[:s.fetchK]
	}

	pool := make([]ragDocument, len(results))
	relevance := make([]float64, len(results))
	for i, r := range results {
		pool[i] = r.doc
		relevance[i] = r.score
	}

	picked := mmrSelect(pool, relevance, topK, s.lambda)
	out := make([]Source, len(picked))
	for i, doc := range picked {
		out[i] = Source{SourceID: doc.sourceID, Snippet: doc.content}
	}
	return out, nil
}

// mmrSelect greedily picks documents maximizing lambda-weighted relevance
// minus similarity to already-picked documents.
func mmrSelect(pool []ragDocument, relevance []float64, k int, lambda float64) []ragDocument {
	if k > len(pool) {
		k = len(pool)
	}

	picked := make([]ragDocument, 0, k)
	used := make([]bool, len(pool))

	for len(picked) < k {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i := range pool {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, p := range picked {
				if sim := cosineSimilarity(pool[i].embedding, p.embedding); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*relevance[i] - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		picked = append(picked, pool[bestIdx])
	}
	return picked
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
