package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const insertTurnSQL = `
INSERT INTO conversation_turns
    (session_hash, intent, urgency, risk_level, user_message, reply, follow_up, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresTurnStore persists completed turns for audit and analytics. The
// session ID is stored only as a SHA-256 hash so database rows cannot be
// joined back to a live session identifier.
type PostgresTurnStore struct {
	db pgxExecutor
}

func NewPostgresTurnStore(db pgxExecutor) *PostgresTurnStore {
	if db == nil {
		panic("conversation: database pool cannot be nil")
	}
	return &PostgresTurnStore{db: db}
}

func (s *PostgresTurnStore) RecordTurn(ctx context.Context, record TurnRecord) error {
	_, err := s.db.Exec(ctx, insertTurnSQL,
		HashSessionID(record.SessionID),
		string(record.Intent),
		string(record.Urgency),
		string(record.RiskLevel),
		record.UserMessage,
		record.Reply,
		record.FollowUp,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("conversation: failed to record turn: %w", err)
	}
	return nil
}

// HashSessionID pseudonymizes a session identifier for storage.
func HashSessionID(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}
