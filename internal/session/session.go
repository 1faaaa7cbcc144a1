// Package session 定义签名会话模型与持久化接口。
// 会话是协调器的唯一共享状态，所有写入都走乐观并发的比较替换。
package session

import (
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Status 签名会话状态
type Status string

const (
	StatusCreated            Status = "created"
	StatusCollectingNonces   Status = "collecting_nonces"
	StatusCollectingPartials Status = "collecting_partials"
	StatusAggregating        Status = "aggregating"
	// StatusVerifying 聚合签名已通过验证，等待发布
	StatusVerifying Status = "verifying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Terminal 是否已进入终态
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// NonceCommitment 参与者第一轮提交的隐藏/绑定承诺（压缩点十六进制）
type NonceCommitment struct {
	Hiding  string `json:"hiding"`
	Binding string `json:"binding"`
}

// AggregatedSignature 聚合签名，R 为 x-only 坐标
type AggregatedSignature struct {
	R string `json:"r"`
	S string `json:"s"`
}

// Session 门限签名会话记录
type Session struct {
	SessionID         string                     `json:"session_id"`
	ApprovalID        string                     `json:"approval_id,omitempty"`
	MessageHash       string                     `json:"message_hash"`
	EventTemplate     string                     `json:"event_template,omitempty"`
	Participants      []string                   `json:"participants"`
	Threshold         int                        `json:"threshold"`
	Status            Status                     `json:"status"`
	GroupPublicKey    string                     `json:"group_public_key"`
	NonceCommitments  map[string]NonceCommitment `json:"nonce_commitments"`
	PartialSignatures map[string]string          `json:"partial_signatures"`
	Aggregated        *AggregatedSignature       `json:"aggregated_signature,omitempty"`
	FinalArtifactID   string                     `json:"final_artifact_id,omitempty"`
	ErrorReason       string                     `json:"error,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
	ExpiresAt         time.Time                  `json:"expires_at"`
}

// Clone 深拷贝会话记录，写前复制用
func (s *Session) Clone() (*Session, error) {
	var out Session
	if err := copier.CopyWithOption(&out, s, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "failed to clone session")
	}
	return &out, nil
}

// SignerIDs 第一轮收齐后冻结的签名者集合（承诺表的键，排序后返回）
func (s *Session) SignerIDs() []string {
	ids := lo.Keys(s.NonceCommitments)
	sort.Strings(ids)
	return ids
}

// ParticipantIndex 参与者在会话中的签名编号，从 1 开始
func (s *Session) ParticipantIndex(participantID string) (uint32, bool) {
	for i, id := range s.Participants {
		if id == participantID {
			return uint32(i + 1), true
		}
	}
	return 0, false
}
