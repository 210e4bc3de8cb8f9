package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mediconnect/assistant-platform/internal/conversation"
	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// TurnArchiveRecord is the JSON document written per archived turn. Session
// identifiers appear only as hashes.
type TurnArchiveRecord struct {
	SessionHash string `json:"session_hash"`
	Intent      string `json:"intent"`
	Urgency     string `json:"urgency"`
	RiskLevel   string `json:"risk_level"`
	UserMessage string `json:"user_message"`
	Reply       string `json:"reply"`
	FollowUp    string `json:"follow_up,omitempty"`
	ArchivedAt  string `json:"archived_at"`
}

// ManifestEntry is one JSONL line in the monthly manifest.
type ManifestEntry struct {
	SessionHash string `json:"session_hash"`
	S3Key       string `json:"s3_key"`
	Intent      string `json:"intent"`
	RiskLevel   string `json:"risk_level"`
	ArchivedAt  string `json:"archived_at"`
}

// Store archives completed turns to S3 as cold storage for audit and
// quality review.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations are
// no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled reports whether archival is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveTurn writes one turn as JSON to S3 and appends to the monthly
// manifest.
func (s *Store) ArchiveTurn(ctx context.Context, record conversation.TurnRecord) error {
	if !s.Enabled() {
		return nil
	}

	now := record.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	sessionHash := conversation.HashSessionID(record.SessionID)

	doc := TurnArchiveRecord{
		SessionHash: sessionHash,
		Intent:      string(record.Intent),
		Urgency:     string(record.Urgency),
		RiskLevel:   string(record.RiskLevel),
		UserMessage: record.UserMessage,
		Reply:       record.Reply,
		FollowUp:    record.FollowUp,
		ArchivedAt:  now.Format(time.RFC3339),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	s3Key := fmt.Sprintf("turns/v1/by-date/%d/%02d/%02d/%s/%s.json",
		now.Year(), now.Month(), now.Day(), sessionHash, uuid.NewString())

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", s3Key, err)
	}

	s.logger.Info("archived turn to S3",
		"session_hash", sessionHash,
		"s3_key", s3Key,
		"intent", doc.Intent,
	)

	entry := ManifestEntry{
		SessionHash: sessionHash,
		S3Key:       s3Key,
		Intent:      doc.Intent,
		RiskLevel:   doc.RiskLevel,
		ArchivedAt:  doc.ArchivedAt,
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		// The turn itself is already archived; a manifest gap is recoverable.
		s.logger.Warn("failed to append manifest", "error", err, "session_hash", sessionHash)
	}
	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file. S3 has
// no append, so this is read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := time.Now().UTC()
	manifestKey := fmt.Sprintf("turns/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	if err != nil {
		if !isNotFoundErr(err) {
			s.logger.Debug("manifest read failed, starting fresh", "key", manifestKey, "error", err)
		}
	} else {
		existing, _ = io.ReadAll(getResp.Body)
		getResp.Body.Close()
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

// isNotFoundErr checks if the error is an S3 object-missing error. String
// matching because errors.As with S3 smithy types is unreliable here.
func isNotFoundErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}
