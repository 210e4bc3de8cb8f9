package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service   Service
	knowledge KnowledgeRepository
	logger    *logging.Logger
}

// NewHandler creates a conversation handler. The knowledge repository is
// optional; without it the knowledge endpoint returns 404.
func NewHandler(service Service, knowledge KnowledgeRepository, logger *logging.Logger) *Handler {
	if service == nil {
		panic("conversation: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, knowledge: knowledge, logger: logger}
}

// Message handles POST /chat/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode turn request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "session_id and message are required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.ProcessTurn(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to process turn", "session_id", req.SessionID, "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// DocumentRequest carries a medical document to summarize within a session.
type DocumentRequest struct {
	SessionID string `json:"session_id"`
	Document  string `json:"document"`
}

// Document handles POST /chat/document. The document flows through the same
// turn pipeline as a doc:-prefixed message.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode document request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Document) == "" {
		http.Error(w, "session_id and document are required", http.StatusBadRequest)
		return
	}

	turn := TurnRequest{
		SessionID: req.SessionID,
		Message:   DocPrefix + " " + req.Document,
	}
	resp, err := h.service.ProcessTurn(r.Context(), turn)
	if err != nil {
		h.logger.Error("failed to process document", "session_id", req.SessionID, "error", err)
		http.Error(w, "Failed to process document", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// History handles GET /chat/sessions/{sessionID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	turns, err := h.service.History(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []Turn{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

// ClearSession handles DELETE /chat/sessions/{sessionID}.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.ClearSession(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to clear session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type addKnowledgeRequest struct {
	Documents []Document `json:"documents"`
}

// AddKnowledge handles POST /knowledge/{corpusID}.
func (h *Handler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.knowledge == nil {
		http.NotFound(w, r)
		return
	}
	corpusID := chi.URLParam(r, "corpusID")

	var req addKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode knowledge request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Documents) == 0 {
		http.Error(w, "documents are required", http.StatusBadRequest)
		return
	}

	if err := h.knowledge.AppendDocuments(r.Context(), corpusID, req.Documents); err != nil {
		h.logger.Error("failed to append knowledge", "corpus_id", corpusID, "error", err)
		http.Error(w, "Failed to store documents", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"corpus_id": corpusID,
		"added":     len(req.Documents),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
