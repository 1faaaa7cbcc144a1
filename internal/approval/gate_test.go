package approval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/messaging"
)

func opHash(seed string) string {
	digest := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(digest[:])
}

func newTestGate() (*Gate, *time2.MockClock, *messaging.ChannelMessenger) {
	clock := time2.NewMockClock(time.Now())
	messenger := messaging.NewChannelMessenger()
	return NewGate(clock, messenger), clock, messenger
}

func openTestRequest(t *testing.T, gate *Gate, threshold int) *Request {
	t.Helper()
	request, err := gate.Open(context.Background(), OpenRequest{
		OperationHash: opHash("family spend"),
		Description:   "move 50k sats to the vacation fund",
		Approvers:     []string{"guardian-a", "guardian-b", "guardian-c"},
		Threshold:     threshold,
		TTL:           time.Hour,
	})
	require.NoError(t, err)
	return request
}

func awaitEnvelope(t *testing.T, inbox <-chan messaging.Envelope) messaging.Envelope {
	t.Helper()
	select {
	case env := <-inbox:
		return env
	case <-time.After(time.Second):
		t.Fatal("expected an envelope")
		return messaging.Envelope{}
	}
}

func TestGateApprovesAtThreshold(t *testing.T) {
	gate, _, _ := newTestGate()
	ctx := context.Background()
	request := openTestRequest(t, gate, 2)

	first, err := gate.SubmitResponse(ctx, request.ApprovalID, "guardian-a", true)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, 1, first.Approvals())

	second, err := gate.SubmitResponse(ctx, request.ApprovalID, "guardian-b", true)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, second.Status)
	assert.Equal(t, 2, second.Approvals())
	require.NotNil(t, second.ResolvedAt)
}

func TestGateRejectsOnFirstNo(t *testing.T) {
	gate, _, _ := newTestGate()
	ctx := context.Background()
	request := openTestRequest(t, gate, 3)

	_, err := gate.SubmitResponse(ctx, request.ApprovalID, "guardian-a", true)
	require.NoError(t, err)

	// 一张反对票立即否决，不等剩余投票
	rejected, err := gate.SubmitResponse(ctx, request.ApprovalID, "guardian-b", false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	_, err = gate.SubmitResponse(ctx, request.ApprovalID, "guardian-c", true)
	require.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestGateRejectsDuplicateVote(t *testing.T) {
	gate, _, _ := newTestGate()
	ctx := context.Background()
	request := openTestRequest(t, gate, 2)

	_, err := gate.SubmitResponse(ctx, request.ApprovalID, "guardian-a", true)
	require.NoError(t, err)

	_, err = gate.SubmitResponse(ctx, request.ApprovalID, "guardian-a", true)
	require.ErrorIs(t, err, ErrDuplicateVote)

	// 改投反对也一样被拒绝
	_, err = gate.SubmitResponse(ctx, request.ApprovalID, "guardian-a", false)
	require.ErrorIs(t, err, ErrDuplicateVote)
}

func TestGateRejectsUnauthorizedApprover(t *testing.T) {
	gate, _, _ := newTestGate()
	ctx := context.Background()
	request := openTestRequest(t, gate, 2)

	_, err := gate.SubmitResponse(ctx, request.ApprovalID, "stranger", true)
	require.ErrorIs(t, err, ErrUnauthorizedApprover)
}

func TestGateExpiry(t *testing.T) {
	gate, clock, _ := newTestGate()
	ctx := context.Background()
	request := openTestRequest(t, gate, 2)

	clock.Advance(2 * time.Hour)

	_, err := gate.SubmitResponse(ctx, request.ApprovalID, "guardian-a", true)
	require.ErrorIs(t, err, ErrExpired)

	got, err := gate.Get(ctx, request.ApprovalID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
	require.NotNil(t, got.ResolvedAt)
}

func TestGateGetExpiresLazily(t *testing.T) {
	gate, clock, _ := newTestGate()
	ctx := context.Background()
	request := openTestRequest(t, gate, 2)

	clock.Advance(90 * time.Minute)

	got, err := gate.Get(ctx, request.ApprovalID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
}

func TestGateGetMissing(t *testing.T) {
	gate, _, _ := newTestGate()
	_, err := gate.Get(context.Background(), "approval-missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGateOpenValidation(t *testing.T) {
	gate, _, _ := newTestGate()
	ctx := context.Background()

	base := OpenRequest{
		OperationHash: opHash("ok"),
		Approvers:     []string{"guardian-a", "guardian-b"},
		Threshold:     1,
		TTL:           time.Hour,
	}

	cases := []struct {
		name   string
		mutate func(r *OpenRequest)
	}{
		{"哈希不是十六进制", func(r *OpenRequest) { r.OperationHash = "not-hex" }},
		{"哈希长度错误", func(r *OpenRequest) { r.OperationHash = "abcd" }},
		{"没有审批人", func(r *OpenRequest) { r.Approvers = nil }},
		{"审批人为空串", func(r *OpenRequest) { r.Approvers = []string{""} }},
		{"审批人重复", func(r *OpenRequest) { r.Approvers = []string{"guardian-a", "guardian-a"} }},
		{"审批人超出上限", func(r *OpenRequest) {
			r.Approvers = []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7", "g8"}
		}},
		{"门限为零", func(r *OpenRequest) { r.Threshold = 0 }},
		{"门限超过人数", func(r *OpenRequest) { r.Threshold = 3 }},
		{"TTL 为零", func(r *OpenRequest) { r.TTL = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			req.Approvers = append([]string(nil), base.Approvers...)
			tc.mutate(&req)
			_, err := gate.Open(ctx, req)
			require.Error(t, err)
		})
	}
}

func TestGateNotifiesApprovers(t *testing.T) {
	gate, _, messenger := newTestGate()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox, err := messenger.Subscribe(ctx, "guardian-a")
	require.NoError(t, err)

	request, err := gate.Open(ctx, OpenRequest{
		OperationHash: opHash("notify"),
		Approvers:     []string{"guardian-a"},
		Threshold:     1,
		TTL:           time.Hour,
	})
	require.NoError(t, err)

	opened := awaitEnvelope(t, inbox)
	assert.Equal(t, messaging.KindApprovalRequested, opened.Kind)
	assert.Equal(t, request.ApprovalID, opened.Ref)

	_, err = gate.SubmitResponse(ctx, request.ApprovalID, "guardian-a", true)
	require.NoError(t, err)

	resolved := awaitEnvelope(t, inbox)
	assert.Equal(t, messaging.KindApprovalResolved, resolved.Kind)
	assert.Equal(t, request.ApprovalID, resolved.Ref)
}

func TestGateAwait(t *testing.T) {
	gate, _, _ := newTestGate()
	ctx := context.Background()
	request := openTestRequest(t, gate, 1)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = gate.SubmitResponse(ctx, request.ApprovalID, "guardian-b", true)
	}()

	status, err := gate.Await(ctx, request.ApprovalID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status)
}

func TestGateExpireOverdue(t *testing.T) {
	gate, clock, _ := newTestGate()
	ctx := context.Background()

	first := openTestRequest(t, gate, 2)
	second := openTestRequest(t, gate, 2)

	assert.Equal(t, 0, gate.ExpireOverdue(ctx))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, gate.ExpireOverdue(ctx))

	for _, id := range []string{first.ApprovalID, second.ApprovalID} {
		got, err := gate.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, got.Status)
	}
}
