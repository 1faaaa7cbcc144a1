package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/frost"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/messaging"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/publisher"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
)

type testEnv struct {
	store     *session.MemoryStore
	gate      *approval.Gate
	clock     *time2.MockClock
	messenger *messaging.ChannelMessenger
	service   *Service
}

func newTestEnv(requireApproval bool) *testEnv {
	store := session.NewMemoryStore()
	clock := time2.NewMockClock(time.Now())
	messenger := messaging.NewChannelMessenger()
	gate := approval.NewGate(clock, messenger)
	return &testEnv{
		store:     store,
		gate:      gate,
		clock:     clock,
		messenger: messenger,
		service:   NewService(store, gate, messenger, clock, 15*time.Minute, requireApproval),
	}
}

func testHash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// oneScalar 群阶内最小的合法标量，给授权类测试当占位部分签名用
func oneScalar() string {
	return strings.Repeat("0", 63) + "1"
}

func createTestSession(t *testing.T, env *testEnv, deal *frost.Deal, msgHash string) *session.Session {
	t.Helper()
	sess, err := env.service.CreateSession(context.Background(), CreateSessionRequest{
		MessageHash:    msgHash,
		EventTemplate:  `{"kind":1,"content":"family treasury move"}`,
		Participants:   []string{"alice", "bob", "carol"},
		Threshold:      2,
		GroupPublicKey: deal.GroupPublicKey,
	})
	require.NoError(t, err)
	require.Equal(t, session.StatusCollectingNonces, sess.Status)
	return sess
}

// submitCommitment 以参与者身份提交一份新生成的随机数承诺
func submitCommitment(t *testing.T, env *testEnv, sessionID, participantID string, index uint32) (*session.Session, *frost.Nonce) {
	t.Helper()
	nonce, err := frost.GenerateNonce(index)
	require.NoError(t, err)
	sess, err := env.service.SubmitNonceCommitment(context.Background(), sessionID, participantID, session.NonceCommitment{
		Hiding:  nonce.Commitment().Hiding,
		Binding: nonce.Commitment().Binding,
	})
	require.NoError(t, err)
	return sess, nonce
}

func frozenCommitments(sess *session.Session) []frost.NonceCommitment {
	commitments := make([]frost.NonceCommitment, 0, len(sess.NonceCommitments))
	for _, id := range sess.SignerIDs() {
		index, _ := sess.ParticipantIndex(id)
		c := sess.NonceCommitments[id]
		commitments = append(commitments, frost.NonceCommitment{Index: index, Hiding: c.Hiding, Binding: c.Binding})
	}
	return commitments
}

func TestSigningSessionHappyPath(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()

	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)
	msgHash := testHash("nostr event")

	sess := createTestSession(t, env, deal, msgHash)

	// 第一轮：alice(1) 和 bob(2) 提交承诺，第二份冻结签名者集合
	sess, aliceNonce := submitCommitment(t, env, sess.SessionID, "alice", 1)
	assert.Equal(t, session.StatusCollectingNonces, sess.Status)

	sess, bobNonce := submitCommitment(t, env, sess.SessionID, "bob", 2)
	assert.Equal(t, session.StatusCollectingPartials, sess.Status)
	assert.Equal(t, []string{"alice", "bob"}, sess.SignerIDs())

	// 第二轮：基于冻结的承诺列表计算部分签名
	commitments := frozenCommitments(sess)
	rawHash, err := hex.DecodeString(msgHash)
	require.NoError(t, err)

	alicePartial, err := frost.Sign(&deal.Shares[0], aliceNonce, rawHash, commitments)
	require.NoError(t, err)
	bobPartial, err := frost.Sign(&deal.Shares[1], bobNonce, rawHash, commitments)
	require.NoError(t, err)

	sess, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "alice", alicePartial.Z)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCollectingPartials, sess.Status)

	// 最后一份部分签名触发聚合与验证，没有发布方时停在 verifying
	sess, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "bob", bobPartial.Z)
	require.NoError(t, err)
	assert.Equal(t, session.StatusVerifying, sess.Status)
	require.NotNil(t, sess.Aggregated)
	assert.Empty(t, sess.ErrorReason)

	ok, err := frost.Verify(&frost.Signature{R: sess.Aggregated.R, S: sess.Aggregated.S}, rawHash, deal.GroupPublicKey)
	require.NoError(t, err)
	assert.True(t, ok, "聚合签名必须能通过组公钥验证")
}

func TestSigningSessionAutoPublish(t *testing.T) {
	env := newTestEnv(false)
	env.service.SetPublisher(publisher.NewService(env.store, publisher.LogRelay{}, env.messenger, env.clock))
	ctx := context.Background()

	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)
	msgHash := testHash("auto publish")

	sess := createTestSession(t, env, deal, msgHash)
	sess, aliceNonce := submitCommitment(t, env, sess.SessionID, "alice", 1)
	sess, bobNonce := submitCommitment(t, env, sess.SessionID, "bob", 2)

	commitments := frozenCommitments(sess)
	rawHash, _ := hex.DecodeString(msgHash)
	alicePartial, err := frost.Sign(&deal.Shares[0], aliceNonce, rawHash, commitments)
	require.NoError(t, err)
	bobPartial, err := frost.Sign(&deal.Shares[1], bobNonce, rawHash, commitments)
	require.NoError(t, err)

	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "alice", alicePartial.Z)
	require.NoError(t, err)
	sess, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "bob", bobPartial.Z)
	require.NoError(t, err)

	// 模板没有 id 字段，发布时回填消息哈希作为事件标识
	assert.Equal(t, session.StatusCompleted, sess.Status)
	assert.Equal(t, msgHash, sess.FinalArtifactID)
}

func TestCreateSessionValidation(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()

	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	base := CreateSessionRequest{
		MessageHash:    testHash("validation"),
		EventTemplate:  `{"kind":1}`,
		Participants:   []string{"alice", "bob", "carol"},
		Threshold:      2,
		GroupPublicKey: deal.GroupPublicKey,
	}

	cases := []struct {
		name   string
		mutate func(r *CreateSessionRequest)
		code   session.ErrorCode
	}{
		{"门限太小", func(r *CreateSessionRequest) { r.Threshold = 1 }, session.CodeInvalidThreshold},
		{"门限超过人数", func(r *CreateSessionRequest) { r.Threshold = 4 }, session.CodeInvalidThreshold},
		{"参与者太少", func(r *CreateSessionRequest) { r.Participants = []string{"alice"} }, session.CodeInvalidParticipantCount},
		{"参与者太多", func(r *CreateSessionRequest) {
			r.Participants = []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
			r.Threshold = 2
		}, session.CodeInvalidParticipantCount},
		{"参与者重复", func(r *CreateSessionRequest) { r.Participants = []string{"alice", "alice", "bob"} }, session.CodeInvalidParticipantCount},
		{"参与者为空串", func(r *CreateSessionRequest) { r.Participants = []string{"alice", "", "bob"} }, session.CodeInvalidParticipantCount},
		{"消息哈希不合法", func(r *CreateSessionRequest) { r.MessageHash = "zz" }, ""},
		{"组公钥不合法", func(r *CreateSessionRequest) { r.GroupPublicKey = "abcd" }, ""},
		{"事件模板不是 JSON", func(r *CreateSessionRequest) { r.EventTemplate = "{broken" }, ""},
		{"事件模板为空", func(r *CreateSessionRequest) { r.EventTemplate = "" }, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			req.Participants = append([]string(nil), base.Participants...)
			tc.mutate(&req)
			_, err := env.service.CreateSession(ctx, req)
			require.Error(t, err)
			assert.Equal(t, tc.code, session.CodeOf(err))
		})
	}
}

func TestLateNonceCommitmentAfterFreeze(t *testing.T) {
	env := newTestEnv(false)
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	sess := createTestSession(t, env, deal, testHash("late r1"))
	_, _ = submitCommitment(t, env, sess.SessionID, "alice", 1)
	sess, _ = submitCommitment(t, env, sess.SessionID, "bob", 2)
	require.Equal(t, session.StatusCollectingPartials, sess.Status)

	// 集合已冻结，carol 的承诺来晚了
	nonce, err := frost.GenerateNonce(3)
	require.NoError(t, err)
	_, err = env.service.SubmitNonceCommitment(context.Background(), sess.SessionID, "carol", session.NonceCommitment{
		Hiding:  nonce.Commitment().Hiding,
		Binding: nonce.Commitment().Binding,
	})
	require.Error(t, err)
	assert.Equal(t, session.CodeRoundClosed, session.CodeOf(err))
}

func TestNonceCommitmentAuthorization(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	sess := createTestSession(t, env, deal, testHash("r1 auth"))

	nonce, err := frost.GenerateNonce(1)
	require.NoError(t, err)
	commitment := session.NonceCommitment{
		Hiding:  nonce.Commitment().Hiding,
		Binding: nonce.Commitment().Binding,
	}

	// 名册之外的提交者
	_, err = env.service.SubmitNonceCommitment(ctx, sess.SessionID, "mallory", commitment)
	require.Error(t, err)
	assert.Equal(t, session.CodeUnauthorizedParticipant, session.CodeOf(err))

	// 同一参与者的重复提交
	_, err = env.service.SubmitNonceCommitment(ctx, sess.SessionID, "alice", commitment)
	require.NoError(t, err)
	_, err = env.service.SubmitNonceCommitment(ctx, sess.SessionID, "alice", commitment)
	require.Error(t, err)
	assert.Equal(t, session.CodeDuplicateSubmission, session.CodeOf(err))

	// 承诺点编码不合法
	_, err = env.service.SubmitNonceCommitment(ctx, sess.SessionID, "bob", session.NonceCommitment{Hiding: "00", Binding: "00"})
	require.Error(t, err)
}

func TestPartialSignatureGuards(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	sess := createTestSession(t, env, deal, testHash("r2 guards"))

	// 第二轮还没开
	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "alice", oneScalar())
	require.Error(t, err)
	assert.Equal(t, session.CodeRoundClosed, session.CodeOf(err))

	_, _ = submitCommitment(t, env, sess.SessionID, "alice", 1)
	sess, _ = submitCommitment(t, env, sess.SessionID, "bob", 2)
	require.Equal(t, session.StatusCollectingPartials, sess.Status)

	// carol 在名册里但没赶上第一轮，不在冻结集合中
	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "carol", oneScalar())
	require.Error(t, err)
	assert.Equal(t, session.CodeUnauthorizedParticipant, session.CodeOf(err))

	// 重复的部分签名
	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "alice", oneScalar())
	require.NoError(t, err)
	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "alice", oneScalar())
	require.Error(t, err)
	assert.Equal(t, session.CodeDuplicateSubmission, session.CodeOf(err))

	// 标量编码不合法
	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "bob", "zz")
	require.Error(t, err)
}

func TestTamperedPartialFailsVerification(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)
	msgHash := testHash("tampered partial")

	sess := createTestSession(t, env, deal, msgHash)
	sess, aliceNonce := submitCommitment(t, env, sess.SessionID, "alice", 1)
	sess, _ = submitCommitment(t, env, sess.SessionID, "bob", 2)

	commitments := frozenCommitments(sess)
	rawHash, _ := hex.DecodeString(msgHash)
	alicePartial, err := frost.Sign(&deal.Shares[0], aliceNonce, rawHash, commitments)
	require.NoError(t, err)

	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "alice", alicePartial.Z)
	require.NoError(t, err)

	// bob 交了一个编码合法但内容错误的标量，聚合出的签名过不了验证
	sess, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "bob", oneScalar())
	require.NoError(t, err)
	assert.Equal(t, session.StatusFailed, sess.Status)
	assert.Contains(t, sess.ErrorReason, string(session.CodeSignatureVerificationFailed))
	assert.Nil(t, sess.Aggregated)

	// 终态会话拒绝后续提交
	_, err = env.service.SubmitPartialSignature(ctx, sess.SessionID, "bob", oneScalar())
	require.Error(t, err)
	assert.Equal(t, session.CodeRoundClosed, session.CodeOf(err))
}

func TestSessionExpiry(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	sess := createTestSession(t, env, deal, testHash("expiry"))

	env.clock.Advance(20 * time.Minute)

	nonce, err := frost.GenerateNonce(1)
	require.NoError(t, err)
	_, err = env.service.SubmitNonceCommitment(ctx, sess.SessionID, "alice", session.NonceCommitment{
		Hiding:  nonce.Commitment().Hiding,
		Binding: nonce.Commitment().Binding,
	})
	require.Error(t, err)
	assert.Equal(t, session.CodeSessionExpired, session.CodeOf(err))

	// 过期账已经落下，读取不再报错
	got, err := env.service.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExpired, got.Status)
	assert.Contains(t, got.ErrorReason, string(session.CodeSessionExpired))
}

func TestGetSessionExpiresLazily(t *testing.T) {
	env := newTestEnv(false)
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	sess := createTestSession(t, env, deal, testHash("lazy expiry"))
	env.clock.Advance(time.Hour)

	got, err := env.service.GetSession(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExpired, got.Status)

	stored, err := env.store.GetByID(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExpired, stored.Status)
}

func TestExpireOverdueSessions(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	first := createTestSession(t, env, deal, testHash("sweep 1"))
	second := createTestSession(t, env, deal, testHash("sweep 2"))

	count, err := env.service.ExpireOverdueSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	env.clock.Advance(time.Hour)

	count, err = env.service.ExpireOverdueSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []string{first.SessionID, second.SessionID} {
		got, err := env.store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, session.StatusExpired, got.Status)
	}
}

func TestCreateSessionApprovalGating(t *testing.T) {
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	baseRequest := func(approvalID string) CreateSessionRequest {
		return CreateSessionRequest{
			ApprovalID:     approvalID,
			MessageHash:    testHash("gated"),
			EventTemplate:  `{"kind":1}`,
			Participants:   []string{"alice", "bob", "carol"},
			Threshold:      2,
			GroupPublicKey: deal.GroupPublicKey,
		}
	}
	openApproval := func(t *testing.T, env *testEnv) *approval.Request {
		t.Helper()
		req, err := env.gate.Open(context.Background(), approval.OpenRequest{
			OperationHash: testHash("gated"),
			Approvers:     []string{"dad", "mom"},
			Threshold:     2,
			TTL:           time.Hour,
		})
		require.NoError(t, err)
		return req
	}

	t.Run("缺少审批单", func(t *testing.T) {
		env := newTestEnv(true)
		_, err := env.service.CreateSession(context.Background(), baseRequest(""))
		require.Error(t, err)
		assert.Equal(t, session.CodeApprovalRejected, session.CodeOf(err))
	})

	t.Run("审批未通过", func(t *testing.T) {
		env := newTestEnv(true)
		req := openApproval(t, env)
		_, err := env.service.CreateSession(context.Background(), baseRequest(req.ApprovalID))
		require.Error(t, err)
		assert.Equal(t, session.CodeApprovalRejected, session.CodeOf(err))
	})

	t.Run("审批被否决", func(t *testing.T) {
		env := newTestEnv(true)
		req := openApproval(t, env)
		_, err := env.gate.SubmitResponse(context.Background(), req.ApprovalID, "dad", false)
		require.NoError(t, err)
		_, err = env.service.CreateSession(context.Background(), baseRequest(req.ApprovalID))
		require.Error(t, err)
		assert.Equal(t, session.CodeApprovalRejected, session.CodeOf(err))
	})

	t.Run("审批已过期", func(t *testing.T) {
		env := newTestEnv(true)
		req := openApproval(t, env)
		env.clock.Advance(2 * time.Hour)
		_, err := env.service.CreateSession(context.Background(), baseRequest(req.ApprovalID))
		require.Error(t, err)
		assert.Equal(t, session.CodeApprovalExpired, session.CodeOf(err))
	})

	t.Run("审批单不存在", func(t *testing.T) {
		env := newTestEnv(true)
		_, err := env.service.CreateSession(context.Background(), baseRequest("approval-missing"))
		require.Error(t, err)
		assert.Equal(t, session.CodeApprovalRejected, session.CodeOf(err))
	})

	t.Run("审批通过后放行", func(t *testing.T) {
		env := newTestEnv(true)
		req := openApproval(t, env)
		ctx := context.Background()
		_, err := env.gate.SubmitResponse(ctx, req.ApprovalID, "dad", true)
		require.NoError(t, err)
		_, err = env.gate.SubmitResponse(ctx, req.ApprovalID, "mom", true)
		require.NoError(t, err)

		sess, err := env.service.CreateSession(ctx, baseRequest(req.ApprovalID))
		require.NoError(t, err)
		assert.Equal(t, session.StatusCollectingNonces, sess.Status)
		assert.Equal(t, req.ApprovalID, sess.ApprovalID)
	})
}

func TestRoundTwoNotificationCarriesFrozenCommitments(t *testing.T) {
	env := newTestEnv(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox, err := env.messenger.Subscribe(ctx, "bob")
	require.NoError(t, err)

	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)
	sess := createTestSession(t, env, deal, testHash("notify"))
	_, _ = submitCommitment(t, env, sess.SessionID, "alice", 1)
	_, _ = submitCommitment(t, env, sess.SessionID, "bob", 2)

	kinds := map[string]messaging.Envelope{}
	for i := 0; i < 2; i++ {
		select {
		case env := <-inbox:
			kinds[env.Kind] = env
		case <-time.After(time.Second):
			t.Fatal("expected two envelopes")
		}
	}
	require.Contains(t, kinds, messaging.KindRoundOneOpen)
	require.Contains(t, kinds, messaging.KindRoundTwoOpen)

	var body struct {
		Signers     []string                `json:"signers"`
		Commitments []frost.NonceCommitment `json:"commitments"`
	}
	require.NoError(t, json.Unmarshal(kinds[messaging.KindRoundTwoOpen].Body, &body))
	assert.Equal(t, []string{"alice", "bob"}, body.Signers)
	require.Len(t, body.Commitments, 2)
	assert.Equal(t, uint32(1), body.Commitments[0].Index)
	assert.Equal(t, uint32(2), body.Commitments[1].Index)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, sess *session.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *mockStore) GetByID(ctx context.Context, sessionID string) (*session.Session, error) {
	args := m.Called(ctx, sessionID)
	if sess := args.Get(0); sess != nil {
		return sess.(*session.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CompareAndSwap(ctx context.Context, expectedVersion time.Time, sess *session.Session) error {
	args := m.Called(ctx, expectedVersion, sess)
	return args.Error(0)
}

func (m *mockStore) ListActive(ctx context.Context) ([]*session.Session, error) {
	args := m.Called(ctx)
	if sessions := args.Get(0); sessions != nil {
		return sessions.([]*session.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func mutableTestSession(clock time2.Clock) *session.Session {
	now := clock.Now().UTC()
	return &session.Session{
		SessionID:         "session-cas",
		Status:            session.StatusCollectingNonces,
		Participants:      []string{"alice", "bob"},
		Threshold:         2,
		NonceCommitments:  map[string]session.NonceCommitment{},
		PartialSignatures: map[string]string{},
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(time.Hour),
	}
}

func TestMutateRetriesOnConflict(t *testing.T) {
	store := &mockStore{}
	clock := time2.NewMockClock(time.Now())
	svc := NewService(store, nil, messaging.NewChannelMessenger(), clock, time.Minute, false)

	store.On("GetByID", mock.Anything, "session-cas").Return(mutableTestSession(clock), nil)
	store.On("CompareAndSwap", mock.Anything, mock.Anything, mock.Anything).Return(session.ErrConcurrencyConflict).Twice()
	store.On("CompareAndSwap", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	updated, err := svc.mutate(context.Background(), "session-cas", func(next *session.Session) error {
		next.Status = session.StatusCollectingPartials
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, session.StatusCollectingPartials, updated.Status)
	store.AssertNumberOfCalls(t, "GetByID", 3)
}

func TestMutateGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &mockStore{}
	clock := time2.NewMockClock(time.Now())
	svc := NewService(store, nil, messaging.NewChannelMessenger(), clock, time.Minute, false)

	store.On("GetByID", mock.Anything, "session-cas").Return(mutableTestSession(clock), nil)
	store.On("CompareAndSwap", mock.Anything, mock.Anything, mock.Anything).Return(session.ErrConcurrencyConflict)

	_, err := svc.mutate(context.Background(), "session-cas", func(next *session.Session) error {
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, session.CodeConcurrencyConflict, session.CodeOf(err))
	store.AssertNumberOfCalls(t, "CompareAndSwap", casAttempts)
}

func TestReaperSweep(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	deal, err := frost.DealShares(2, 3)
	require.NoError(t, err)

	createTestSession(t, env, deal, testHash("reap me"))
	_, err = env.gate.Open(ctx, approval.OpenRequest{
		OperationHash: testHash("reap approval"),
		Approvers:     []string{"dad"},
		Threshold:     1,
		TTL:           time.Minute,
	})
	require.NoError(t, err)

	reaper := NewReaper(env.service, env.gate, "1m")
	env.clock.Advance(time.Hour)

	expired, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
}
