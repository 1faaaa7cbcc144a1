// Package messaging 定义面向参与者钱包的点对点通知通道。
// 协调器只向外发送公开的回合数据，密钥份额与随机数永远不经过这里。
package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// 信封类型
const (
	KindApprovalRequested = "approval_requested"
	KindApprovalResolved  = "approval_resolved"
	KindRoundOneOpen      = "round1_open"
	KindRoundTwoOpen      = "round2_open"
	KindSessionCompleted  = "session_completed"
	KindSessionFailed     = "session_failed"
)

// Envelope 发给单个参与者的通知载荷，Ref 指向会话或审批 ID
type Envelope struct {
	Kind   string          `json:"kind"`
	Ref    string          `json:"ref"`
	Body   json.RawMessage `json:"body,omitempty"`
	SentAt time.Time       `json:"sent_at"`
}

// Messenger 点对点通知通道
type Messenger interface {
	// SendToParticipant 投递信封，投递失败返回错误
	SendToParticipant(ctx context.Context, participantID string, env Envelope) error
	// Subscribe 订阅参与者的通知流，ctx 取消后通道关闭
	Subscribe(ctx context.Context, participantID string) (<-chan Envelope, error)
}
