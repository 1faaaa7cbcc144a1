package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sessionRecord 会话的数据库映射，时间列统一存纳秒以保证版本比较精确
type sessionRecord struct {
	SessionID         string                     `gorm:"column:session_id;primaryKey"`
	ApprovalID        string                     `gorm:"column:approval_id"`
	MessageHash       string                     `gorm:"column:message_hash"`
	EventTemplate     string                     `gorm:"column:event_template"`
	Participants      []string                   `gorm:"column:participants;serializer:json"`
	Threshold         int                        `gorm:"column:threshold"`
	Status            string                     `gorm:"column:status;index"`
	GroupPublicKey    string                     `gorm:"column:group_public_key"`
	NonceCommitments  map[string]NonceCommitment `gorm:"column:nonce_commitments;serializer:json"`
	PartialSignatures map[string]string          `gorm:"column:partial_signatures;serializer:json"`
	Aggregated        *AggregatedSignature       `gorm:"column:aggregated_signature;serializer:json"`
	FinalArtifactID   string                     `gorm:"column:final_artifact_id"`
	ErrorReason       string                     `gorm:"column:error_reason"`
	CreatedAtNs       int64                      `gorm:"column:created_at_ns"`
	UpdatedAtNs       int64                      `gorm:"column:updated_at_ns;index"`
	ExpiresAtNs       int64                      `gorm:"column:expires_at_ns"`
}

// TableName ...
func (sessionRecord) TableName() string {
	return "signing_sessions"
}

func toRecord(sess *Session) *sessionRecord {
	return &sessionRecord{
		SessionID:         sess.SessionID,
		ApprovalID:        sess.ApprovalID,
		MessageHash:       sess.MessageHash,
		EventTemplate:     sess.EventTemplate,
		Participants:      sess.Participants,
		Threshold:         sess.Threshold,
		Status:            string(sess.Status),
		GroupPublicKey:    sess.GroupPublicKey,
		NonceCommitments:  sess.NonceCommitments,
		PartialSignatures: sess.PartialSignatures,
		Aggregated:        sess.Aggregated,
		FinalArtifactID:   sess.FinalArtifactID,
		ErrorReason:       sess.ErrorReason,
		CreatedAtNs:       sess.CreatedAt.UnixNano(),
		UpdatedAtNs:       sess.UpdatedAt.UnixNano(),
		ExpiresAtNs:       sess.ExpiresAt.UnixNano(),
	}
}

func (r *sessionRecord) toSession() *Session {
	return &Session{
		SessionID:         r.SessionID,
		ApprovalID:        r.ApprovalID,
		MessageHash:       r.MessageHash,
		EventTemplate:     r.EventTemplate,
		Participants:      r.Participants,
		Threshold:         r.Threshold,
		Status:            Status(r.Status),
		GroupPublicKey:    r.GroupPublicKey,
		NonceCommitments:  r.NonceCommitments,
		PartialSignatures: r.PartialSignatures,
		Aggregated:        r.Aggregated,
		FinalArtifactID:   r.FinalArtifactID,
		ErrorReason:       r.ErrorReason,
		CreatedAt:         time.Unix(0, r.CreatedAtNs),
		UpdatedAt:         time.Unix(0, r.UpdatedAtNs),
		ExpiresAt:         time.Unix(0, r.ExpiresAtNs),
	}
}

// GormStore 基于 SQLite 的持久会话存储。
// 比较替换落在带 updated_at_ns 条件的 UPDATE 上，零行命中即版本冲突。
type GormStore struct {
	db *gorm.DB
}

// NewSQLiteStore 打开（必要时初始化）SQLite 会话库
func NewSQLiteStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}
	return NewGormStore(db)
}

// NewGormStore 在已有连接上初始化会话表
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate session schema")
	}
	return &GormStore{db: db}, nil
}

// Create ...
func (s *GormStore) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}
	err := s.db.WithContext(ctx).Create(toRecord(sess)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSessionExists
	}
	if err != nil {
		return errors.Wrap(err, "failed to store session")
	}
	return nil
}

// GetByID ...
func (s *GormStore) GetByID(ctx context.Context, sessionID string) (*Session, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	return rec.toSession(), nil
}

// CompareAndSwap ...
func (s *GormStore) CompareAndSwap(ctx context.Context, expectedVersion time.Time, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}

	res := s.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("session_id = ? AND updated_at_ns = ?", sess.SessionID, expectedVersion.UnixNano()).
		Select("*").
		Updates(toRecord(sess))
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to update session")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&sessionRecord{}).
			Where("session_id = ?", sess.SessionID).Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to check session existence")
		}
		if count == 0 {
			return ErrSessionNotFound
		}
		return ErrConcurrencyConflict
	}
	return nil
}

// ListActive ...
func (s *GormStore) ListActive(ctx context.Context) ([]*Session, error) {
	terminal := []string{string(StatusCompleted), string(StatusFailed), string(StatusExpired)}

	var recs []sessionRecord
	err := s.db.WithContext(ctx).Where("status NOT IN ?", terminal).Find(&recs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	active := make([]*Session, 0, len(recs))
	for i := range recs {
		active = append(active, recs[i].toSession())
	}
	return active, nil
}
