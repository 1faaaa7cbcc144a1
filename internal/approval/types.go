// Package approval 实现签名前的人工审批门。
// 只有审批通过的操作才允许开启签名会话，任何一张反对票立即否决。
package approval

import "time"

// Status 审批状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Resolved 是否已有最终结论
func (s Status) Resolved() bool {
	return s != StatusPending
}

// Request 一次敏感操作的审批请求
type Request struct {
	ApprovalID        string          `json:"approval_id"`
	OperationHash     string          `json:"operation_hash"`
	Description       string          `json:"description,omitempty"`
	EligibleApprovers []string        `json:"eligible_approvers"`
	Threshold         int             `json:"threshold"`
	Votes             map[string]bool `json:"votes"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
}

// Approvals 已收到的赞成票数
func (r *Request) Approvals() int {
	count := 0
	for _, approve := range r.Votes {
		if approve {
			count++
		}
	}
	return count
}

func (r *Request) clone() *Request {
	out := *r
	out.EligibleApprovers = append([]string(nil), r.EligibleApprovers...)
	out.Votes = make(map[string]bool, len(r.Votes))
	for approver, vote := range r.Votes {
		out.Votes[approver] = vote
	}
	if r.ResolvedAt != nil {
		resolved := *r.ResolvedAt
		out.ResolvedAt = &resolved
	}
	return &out
}
