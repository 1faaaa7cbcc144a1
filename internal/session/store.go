package session

import (
	"context"
	"time"
)

// Store 会话持久化接口。
// 版本即记录的 updated_at，写入方负责在新记录上设置新的 updated_at。
type Store interface {
	// Create 写入新会话，ID 已存在时返回 ErrSessionExists
	Create(ctx context.Context, sess *Session) error
	// GetByID 按会话 ID 读取，未找到返回 ErrSessionNotFound
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	// CompareAndSwap 当存储中的 updated_at 与 expectedVersion 一致时整体替换记录，
	// 否则返回 ErrConcurrencyConflict
	CompareAndSwap(ctx context.Context, expectedVersion time.Time, sess *Session) error
	// ListActive 列出所有未进入终态的会话
	ListActive(ctx context.Context) ([]*Session, error)
}
