package approval

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/messaging"
)

// 审批人数量与家庭联邦规模一致
const (
	MinApprovers = 1
	MaxApprovers = 7
)

// Gate 审批门，按请求收集监护人投票并在出结论时广播
type Gate struct {
	mu        sync.RWMutex
	requests  map[string]*gateEntry
	clock     time2.Clock
	messenger messaging.Messenger
}

type gateEntry struct {
	request  *Request
	eligible mapset.Set[string]
	done     chan struct{}
}

// NewGate ...
func NewGate(clock time2.Clock, messenger messaging.Messenger) *Gate {
	return &Gate{
		requests:  make(map[string]*gateEntry),
		clock:     clock,
		messenger: messenger,
	}
}

// OpenRequest 开启审批所需的参数
type OpenRequest struct {
	OperationHash string
	Description   string
	Approvers     []string
	Threshold     int
	TTL           time.Duration
}

// Open 创建审批请求并通知全部审批人
func (g *Gate) Open(ctx context.Context, req OpenRequest) (*Request, error) {
	// 1. 参数校验
	raw, err := hex.DecodeString(req.OperationHash)
	if err != nil || len(raw) != 32 {
		return nil, errors.New("operation hash must be 32 bytes of hex")
	}
	approvers, err := normalizeApprovers(req.Approvers)
	if err != nil {
		return nil, err
	}
	if req.Threshold < 1 || req.Threshold > len(approvers) {
		return nil, errors.Errorf("approval threshold must be between 1 and %d, got %d", len(approvers), req.Threshold)
	}
	if req.TTL <= 0 {
		return nil, errors.New("approval ttl must be positive")
	}

	// 2. 登记请求
	now := g.clock.Now()
	request := &Request{
		ApprovalID:        "approval-" + uuid.New().String(),
		OperationHash:     req.OperationHash,
		Description:       req.Description,
		EligibleApprovers: approvers,
		Threshold:         req.Threshold,
		Votes:             make(map[string]bool),
		Status:            StatusPending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(req.TTL),
	}
	entry := &gateEntry{
		request:  request,
		eligible: mapset.NewSet(approvers...),
		done:     make(chan struct{}),
	}

	g.mu.Lock()
	g.requests[request.ApprovalID] = entry
	g.mu.Unlock()

	log.Info().
		Str("approval_id", request.ApprovalID).
		Int("approvers", len(approvers)).
		Int("threshold", req.Threshold).
		Time("expires_at", request.ExpiresAt).
		Msg("Approval request opened")

	// 3. 通知审批人
	body, _ := json.Marshal(map[string]interface{}{
		"operation_hash": request.OperationHash,
		"description":    request.Description,
		"threshold":      request.Threshold,
		"expires_at":     request.ExpiresAt,
	})
	result := messaging.Fanout(ctx, g.messenger, approvers, messaging.Envelope{
		Kind:   messaging.KindApprovalRequested,
		Ref:    request.ApprovalID,
		Body:   body,
		SentAt: now,
	})
	log.Info().
		Int("notified", result.Notified).
		Int("total", result.Total).
		Str("approval_id", request.ApprovalID).
		Msg("Approval request delivered")

	return request.clone(), nil
}

// SubmitResponse 记录一票。到达阈值即通过，任何一张反对票立即否决。
func (g *Gate) SubmitResponse(ctx context.Context, approvalID, approverID string, approve bool) (*Request, error) {
	g.mu.Lock()
	entry, ok := g.requests[approvalID]
	if !ok {
		g.mu.Unlock()
		return nil, ErrNotFound
	}
	request := entry.request
	now := g.clock.Now()

	// 惰性过期
	if request.Status == StatusPending && now.After(request.ExpiresAt) {
		g.resolveLocked(entry, StatusExpired, now)
		snapshot := request.clone()
		g.mu.Unlock()
		g.notifyResolved(ctx, snapshot)
		return nil, ErrExpired
	}
	if request.Status != StatusPending {
		g.mu.Unlock()
		return nil, ErrAlreadyResolved
	}
	if !entry.eligible.Contains(approverID) {
		g.mu.Unlock()
		return nil, ErrUnauthorizedApprover
	}
	if _, voted := request.Votes[approverID]; voted {
		g.mu.Unlock()
		return nil, ErrDuplicateVote
	}

	request.Votes[approverID] = approve

	resolved := false
	if !approve {
		g.resolveLocked(entry, StatusRejected, now)
		resolved = true
	} else if request.Approvals() >= request.Threshold {
		g.resolveLocked(entry, StatusApproved, now)
		resolved = true
	}
	snapshot := request.clone()
	g.mu.Unlock()

	if resolved {
		g.notifyResolved(ctx, snapshot)
	}
	return snapshot, nil
}

// Get 查询审批请求，逾期未决的请求在读取时转为过期
func (g *Gate) Get(ctx context.Context, approvalID string) (*Request, error) {
	g.mu.Lock()
	entry, ok := g.requests[approvalID]
	if !ok {
		g.mu.Unlock()
		return nil, ErrNotFound
	}

	now := g.clock.Now()
	expiredNow := false
	if entry.request.Status == StatusPending && now.After(entry.request.ExpiresAt) {
		g.resolveLocked(entry, StatusExpired, now)
		expiredNow = true
	}
	snapshot := entry.request.clone()
	g.mu.Unlock()

	if expiredNow {
		g.notifyResolved(ctx, snapshot)
	}
	return snapshot, nil
}

// Await 阻塞等待审批结论
func (g *Gate) Await(ctx context.Context, approvalID string) (Status, error) {
	g.mu.RLock()
	entry, ok := g.requests[approvalID]
	g.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}

	remaining := entry.request.ExpiresAt.Sub(g.clock.Now())
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-entry.done:
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	request, err := g.Get(ctx, approvalID)
	if err != nil {
		return "", err
	}
	return request.Status, nil
}

// ExpireOverdue 将所有逾期未决的审批标记为过期，返回本次过期的数量
func (g *Gate) ExpireOverdue(ctx context.Context) int {
	now := g.clock.Now()

	var expired []*Request
	g.mu.Lock()
	for _, entry := range g.requests {
		if entry.request.Status == StatusPending && now.After(entry.request.ExpiresAt) {
			g.resolveLocked(entry, StatusExpired, now)
			expired = append(expired, entry.request.clone())
		}
	}
	g.mu.Unlock()

	for _, snapshot := range expired {
		g.notifyResolved(ctx, snapshot)
	}
	return len(expired)
}

func (g *Gate) resolveLocked(entry *gateEntry, status Status, now time.Time) {
	entry.request.Status = status
	resolvedAt := now
	entry.request.ResolvedAt = &resolvedAt
	close(entry.done)

	log.Info().
		Str("approval_id", entry.request.ApprovalID).
		Str("status", string(status)).
		Int("approvals", entry.request.Approvals()).
		Msg("Approval request resolved")
}

func (g *Gate) notifyResolved(ctx context.Context, snapshot *Request) {
	body, _ := json.Marshal(map[string]interface{}{
		"status":         snapshot.Status,
		"operation_hash": snapshot.OperationHash,
	})
	messaging.Fanout(ctx, g.messenger, snapshot.EligibleApprovers, messaging.Envelope{
		Kind:   messaging.KindApprovalResolved,
		Ref:    snapshot.ApprovalID,
		Body:   body,
		SentAt: g.clock.Now(),
	})
}

func normalizeApprovers(approvers []string) ([]string, error) {
	seen := make(map[string]bool, len(approvers))
	unique := make([]string, 0, len(approvers))
	for _, id := range approvers {
		if id == "" {
			return nil, errors.New("approver id must not be empty")
		}
		if seen[id] {
			return nil, errors.Errorf("duplicate approver %q", id)
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) < MinApprovers || len(unique) > MaxApprovers {
		return nil, errors.Errorf("approver count must be between %d and %d, got %d", MinApprovers, MaxApprovers, len(unique))
	}
	return unique, nil
}
