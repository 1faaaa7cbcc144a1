// Package coordinator 驱动两轮门限签名会话：先过人审门禁，再依次
// 收集随机数承诺与部分签名，凑齐后聚合验证并移交发布。
// 所有会话写入都经过乐观并发的比较替换，冲突时在本进程内重试。
package coordinator

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/frost"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/messaging"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
)

const (
	// MinParticipants 会话参与者数量下限
	MinParticipants = 2
	// MaxParticipants 家庭联邦的参与者数量上限
	MaxParticipants = 7

	// casAttempts 单次提交允许的比较替换重试次数
	casAttempts = 3
)

// errPersistExpiry 指示本次修改把会话就地标记为过期，需要落账后再报告过期
var errPersistExpiry = errors.New("session expired during this mutation")

// Publisher 聚合验证通过后的发布协作方
type Publisher interface {
	Publish(ctx context.Context, sessionID string) (*session.Session, error)
}

// Service 回合协调器
type Service struct {
	store           session.Store
	gate            *approval.Gate
	messenger       messaging.Messenger
	clock           time2.Clock
	sessionTTL      time.Duration
	requireApproval bool
	publisher       Publisher
}

// NewService 创建回合协调器，sessionTTL 是未显式指定时的会话存活时长
func NewService(
	store session.Store,
	gate *approval.Gate,
	messenger messaging.Messenger,
	clock time2.Clock,
	sessionTTL time.Duration,
	requireApproval bool,
) *Service {
	ensureSigningMetrics()
	return &Service{
		store:           store,
		gate:            gate,
		messenger:       messenger,
		clock:           clock,
		sessionTTL:      sessionTTL,
		requireApproval: requireApproval,
	}
}

// SetPublisher 注入发布协作方，验证通过的会话会立即尝试发布
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// CreateSessionRequest 开启签名会话的输入
type CreateSessionRequest struct {
	ApprovalID     string
	MessageHash    string
	EventTemplate  string
	Participants   []string
	Threshold      int
	GroupPublicKey string
	TTL            time.Duration
}

// CreateSession 校验输入并开启一个新的签名会话，返回时第一轮已开放
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*session.Session, error) {
	// 1. 人审门禁先行，未放行不产生任何状态
	if err := s.checkApproval(ctx, req.ApprovalID); err != nil {
		return nil, err
	}

	// 2. 参与者名册与门限
	participants, err := normalizeParticipants(req.Participants)
	if err != nil {
		return nil, err
	}
	if req.Threshold < MinParticipants || req.Threshold > len(participants) {
		return nil, session.NewError(session.CodeInvalidThreshold, "",
			fmt.Sprintf("threshold must be between %d and %d, got %d", MinParticipants, len(participants), req.Threshold))
	}

	// 3. 密码学输入
	msgHash := strings.ToLower(req.MessageHash)
	if raw, err := hex.DecodeString(msgHash); err != nil || len(raw) != frost.ScalarSize {
		return nil, errors.Errorf("message hash must be %d bytes of hex", frost.ScalarSize)
	}
	if _, err := frost.ParseGroupKey(req.GroupPublicKey); err != nil {
		return nil, err
	}
	if req.EventTemplate == "" || !json.Valid([]byte(req.EventTemplate)) {
		return nil, errors.New("event template must be a JSON document")
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.sessionTTL
	}

	now := s.clock.Now().UTC()
	sess := &session.Session{
		SessionID:         "session-" + uuid.New().String(),
		ApprovalID:        req.ApprovalID,
		MessageHash:       msgHash,
		EventTemplate:     req.EventTemplate,
		Participants:      participants,
		Threshold:         req.Threshold,
		Status:            session.StatusCreated,
		GroupPublicKey:    strings.ToLower(req.GroupPublicKey),
		NonceCommitments:  make(map[string]session.NonceCommitment),
		PartialSignatures: make(map[string]string),
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "failed to persist the new session")
	}
	log.Info().
		Str("session_id", sess.SessionID).
		Str("approval_id", req.ApprovalID).
		Int("participants", len(participants)).
		Int("threshold", req.Threshold).
		Time("expires_at", sess.ExpiresAt).
		Msg("Signing session created")

	// 4. 通知参与者并开放第一轮征集
	s.notifyRoundOneOpen(ctx, sess)
	return s.mutate(ctx, sess.SessionID, func(next *session.Session) error {
		if next.Status == session.StatusCreated {
			next.Status = session.StatusCollectingNonces
		}
		return nil
	})
}

// SubmitNonceCommitment 记录参与者第一轮的随机数承诺。
// 收到第 threshold 份承诺时冻结签名者集合并开放第二轮。
func (s *Service) SubmitNonceCommitment(
	ctx context.Context,
	sessionID, participantID string,
	commitment session.NonceCommitment,
) (*session.Session, error) {
	if err := frost.ValidatePoint(commitment.Hiding); err != nil {
		countSubmission("nonce", "rejected")
		return nil, errors.Wrap(err, "invalid hiding commitment")
	}
	if err := frost.ValidatePoint(commitment.Binding); err != nil {
		countSubmission("nonce", "rejected")
		return nil, errors.Wrap(err, "invalid binding commitment")
	}
	commitment.Hiding = strings.ToLower(commitment.Hiding)
	commitment.Binding = strings.ToLower(commitment.Binding)

	var froze bool
	updated, err := s.mutate(ctx, sessionID, func(sess *session.Session) error {
		froze = false
		if err := s.ensureLive(sess); err != nil {
			return err
		}
		if sess.Status != session.StatusCollectingNonces {
			return session.NewError(session.CodeRoundClosed, sess.SessionID,
				fmt.Sprintf("round 1 is closed, session is %s", sess.Status))
		}
		if _, ok := sess.ParticipantIndex(participantID); !ok {
			return session.NewError(session.CodeUnauthorizedParticipant, sess.SessionID,
				fmt.Sprintf("participant %s is not part of this session", participantID))
		}
		if _, ok := sess.NonceCommitments[participantID]; ok {
			return session.NewError(session.CodeDuplicateSubmission, sess.SessionID,
				fmt.Sprintf("participant %s already submitted a nonce commitment", participantID))
		}

		if sess.NonceCommitments == nil {
			sess.NonceCommitments = make(map[string]session.NonceCommitment)
		}
		sess.NonceCommitments[participantID] = commitment

		// 第 threshold 份承诺冻结签名者集合，迟到者吃 RoundClosed
		if len(sess.NonceCommitments) >= sess.Threshold {
			sess.Status = session.StatusCollectingPartials
			froze = true
		}
		return nil
	})
	if err != nil {
		countSubmission("nonce", "rejected")
		return nil, err
	}
	countSubmission("nonce", "accepted")

	if froze {
		observePhase("round1", s.clock.Now().Sub(updated.CreatedAt))
		log.Info().
			Str("session_id", updated.SessionID).
			Strs("signers", updated.SignerIDs()).
			Msg("Signer set frozen, opening round 2")
		s.notifyRoundTwoOpen(ctx, updated)
	}
	return updated, nil
}

// SubmitPartialSignature 记录签名者第二轮的部分签名。
// 冻结集合里的最后一份会触发聚合、验证与发布移交。
func (s *Service) SubmitPartialSignature(
	ctx context.Context,
	sessionID, participantID, partial string,
) (*session.Session, error) {
	if err := frost.ValidateScalar(partial); err != nil {
		countSubmission("partial", "rejected")
		return nil, errors.Wrap(err, "invalid partial signature")
	}
	partial = strings.ToLower(partial)

	var complete bool
	updated, err := s.mutate(ctx, sessionID, func(sess *session.Session) error {
		complete = false
		if err := s.ensureLive(sess); err != nil {
			return err
		}
		if sess.Status != session.StatusCollectingPartials {
			return session.NewError(session.CodeRoundClosed, sess.SessionID,
				fmt.Sprintf("round 2 is not open, session is %s", sess.Status))
		}
		// 只有第一轮被记录的承诺者才能签名
		if _, ok := sess.NonceCommitments[participantID]; !ok {
			return session.NewError(session.CodeUnauthorizedParticipant, sess.SessionID,
				fmt.Sprintf("participant %s did not commit in round 1", participantID))
		}
		if _, ok := sess.PartialSignatures[participantID]; ok {
			return session.NewError(session.CodeDuplicateSubmission, sess.SessionID,
				fmt.Sprintf("participant %s already submitted a partial signature", participantID))
		}

		if sess.PartialSignatures == nil {
			sess.PartialSignatures = make(map[string]string)
		}
		sess.PartialSignatures[participantID] = partial

		if len(sess.PartialSignatures) == len(sess.NonceCommitments) {
			sess.Status = session.StatusAggregating
			complete = true
		}
		return nil
	})
	if err != nil {
		countSubmission("partial", "rejected")
		return nil, err
	}
	countSubmission("partial", "accepted")

	if !complete {
		return updated, nil
	}
	observePhase("round2", s.clock.Now().Sub(updated.CreatedAt))
	return s.aggregateAndVerify(ctx, updated)
}

// GetSession 读取会话当前状态，已到期未落账的会话顺手标记过期
func (s *Service) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() || s.clock.Now().Before(sess.ExpiresAt) {
		return sess, nil
	}

	updated, err := s.mutate(ctx, sessionID, func(next *session.Session) error {
		return s.ensureLive(next)
	})
	if err != nil {
		if session.CodeOf(err) == session.CodeSessionExpired {
			if updated != nil {
				return updated, nil
			}
			return s.store.GetByID(ctx, sessionID)
		}
		if session.CodeOf(err) == session.CodeConcurrencyConflict {
			return s.store.GetByID(ctx, sessionID)
		}
		return nil, err
	}
	return updated, nil
}

// ExpireOverdueSessions 扫描活跃会话并把超过期限的标记为过期，返回本轮过期数量
func (s *Service) ExpireOverdueSessions(ctx context.Context) (int, error) {
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list active sessions")
	}

	expired := 0
	now := s.clock.Now()
	for _, sess := range active {
		if now.Before(sess.ExpiresAt) {
			continue
		}
		_, err := s.mutate(ctx, sess.SessionID, func(next *session.Session) error {
			return s.ensureLive(next)
		})
		switch {
		case err == nil:
			// 扫描间隙里会话已被推进或已进入终态
		case session.CodeOf(err) == session.CodeSessionExpired:
			expired++
		default:
			log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("Failed to expire an overdue session")
		}
	}
	return expired, nil
}

// aggregateAndVerify 对冻结集合的部分签名做确定性聚合并验证，
// 失败结果写入会话状态而不是作为接口错误返回。
func (s *Service) aggregateAndVerify(ctx context.Context, sess *session.Session) (*session.Session, error) {
	commitments, partials, err := frostInputs(sess)
	if err != nil {
		return s.fail(ctx, sess.SessionID, session.CodeAggregationError, err.Error())
	}
	msgHash, err := hex.DecodeString(sess.MessageHash)
	if err != nil {
		return s.fail(ctx, sess.SessionID, session.CodeAggregationError, "stored message hash is not decodable")
	}

	sig, err := frost.Aggregate(msgHash, commitments, partials)
	if err != nil {
		return s.fail(ctx, sess.SessionID, session.CodeAggregationError, err.Error())
	}

	ok, err := frost.Verify(sig, msgHash, sess.GroupPublicKey)
	if err != nil {
		return s.fail(ctx, sess.SessionID, session.CodeSignatureVerificationFailed, err.Error())
	}
	if !ok {
		return s.fail(ctx, sess.SessionID, session.CodeSignatureVerificationFailed,
			"aggregated signature does not verify against the group public key")
	}

	updated, err := s.mutate(ctx, sess.SessionID, func(next *session.Session) error {
		if err := s.ensureLive(next); err != nil {
			return err
		}
		if next.Status != session.StatusAggregating {
			return session.NewError(session.CodeRoundClosed, next.SessionID,
				fmt.Sprintf("expected an aggregating session, found %s", next.Status))
		}
		next.Status = session.StatusVerifying
		next.Aggregated = &session.AggregatedSignature{R: sig.R, S: sig.S}
		next.ErrorReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	observePhase("verify", s.clock.Now().Sub(updated.CreatedAt))
	log.Info().
		Str("session_id", updated.SessionID).
		Str("signature_r", sig.R).
		Msg("Aggregated signature verified")

	// 发布失败不回滚签名，会话停在 verifying 等待重试
	if s.publisher == nil {
		return updated, nil
	}
	published, err := s.publisher.Publish(ctx, updated.SessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", updated.SessionID).Msg("Publication attempt failed, session stays publishable")
		latest, getErr := s.store.GetByID(ctx, updated.SessionID)
		if getErr != nil {
			return updated, nil
		}
		return latest, nil
	}
	return published, nil
}

// fail 把会话标记为失败并通知参与者，失败通过会话状态对外暴露
func (s *Service) fail(ctx context.Context, sessionID string, code session.ErrorCode, reason string) (*session.Session, error) {
	updated, err := s.mutate(ctx, sessionID, func(sess *session.Session) error {
		if sess.Status.Terminal() {
			return nil
		}
		sess.Status = session.StatusFailed
		sess.ErrorReason = fmt.Sprintf("%s: %s", code, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Error().
		Str("session_id", sessionID).
		Str("code", string(code)).
		Str("reason", reason).
		Msg("Signing session failed")
	s.notifySessionFailed(ctx, updated)
	return updated, nil
}

// mutate 以比较替换的方式修改会话，冲突时重读重放 apply，
// 超过重试预算返回 ConcurrencyConflict 让提交方自行重试。
func (s *Service) mutate(ctx context.Context, sessionID string, apply func(*session.Session) error) (*session.Session, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.store.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		next, err := current.Clone()
		if err != nil {
			return nil, err
		}

		applyErr := apply(next)
		if applyErr != nil && !errors.Is(applyErr, errPersistExpiry) {
			return nil, applyErr
		}

		next.UpdatedAt = s.clock.Now().UTC()
		err = s.store.CompareAndSwap(ctx, current.UpdatedAt, next)
		if err == nil {
			if applyErr != nil {
				return next, session.NewError(session.CodeSessionExpired, sessionID, "session deadline has passed")
			}
			return next, nil
		}
		if !errors.Is(err, session.ErrConcurrencyConflict) {
			return nil, errors.Wrap(err, "failed to persist the session update")
		}
		if attempt >= casAttempts {
			return nil, session.WrapError(session.CodeConcurrencyConflict, sessionID, err,
				"too many concurrent updates, retry the submission")
		}
		log.Debug().
			Str("session_id", sessionID).
			Int("attempt", attempt).
			Msg("Retrying session update after a concurrent modification")
	}
}

// ensureLive 校验会话期限，越线的活跃会话就地标记过期
func (s *Service) ensureLive(sess *session.Session) error {
	if sess.Status == session.StatusExpired {
		return session.NewError(session.CodeSessionExpired, sess.SessionID, "session deadline has passed")
	}
	if sess.Status.Terminal() {
		return nil
	}
	if s.clock.Now().Before(sess.ExpiresAt) {
		return nil
	}
	sess.Status = session.StatusExpired
	sess.ErrorReason = fmt.Sprintf("%s: session deadline passed before completion", session.CodeSessionExpired)
	return errPersistExpiry
}

// checkApproval 校验会话挂靠的审批单
func (s *Service) checkApproval(ctx context.Context, approvalID string) error {
	if approvalID == "" {
		if !s.requireApproval {
			return nil
		}
		return session.NewError(session.CodeApprovalRejected, "",
			"an approved approval id is required to open a signing session")
	}

	req, err := s.gate.Get(ctx, approvalID)
	if err != nil {
		return session.WrapError(session.CodeApprovalRejected, "", err,
			fmt.Sprintf("approval %s could not be resolved", approvalID))
	}
	switch req.Status {
	case approval.StatusApproved:
		return nil
	case approval.StatusExpired:
		return session.NewError(session.CodeApprovalExpired, "",
			fmt.Sprintf("approval %s expired before the session was opened", approvalID))
	case approval.StatusRejected:
		return session.NewError(session.CodeApprovalRejected, "",
			fmt.Sprintf("approval %s was rejected", approvalID))
	default:
		return session.NewError(session.CodeApprovalRejected, "",
			fmt.Sprintf("approval %s has not been approved yet", approvalID))
	}
}

// frostInputs 把冻结的承诺表与部分签名表整理成聚合输入，按签名者编号排序
func frostInputs(sess *session.Session) ([]frost.NonceCommitment, []frost.PartialSignature, error) {
	signers := sess.SignerIDs()
	commitments := make([]frost.NonceCommitment, 0, len(signers))
	partials := make([]frost.PartialSignature, 0, len(signers))
	for _, id := range signers {
		index, ok := sess.ParticipantIndex(id)
		if !ok {
			return nil, nil, errors.Errorf("committer %s is missing from the participant roster", id)
		}
		commitment := sess.NonceCommitments[id]
		commitments = append(commitments, frost.NonceCommitment{
			Index:   index,
			Hiding:  commitment.Hiding,
			Binding: commitment.Binding,
		})
		z, ok := sess.PartialSignatures[id]
		if !ok {
			return nil, nil, errors.Errorf("partial signature from %s is missing", id)
		}
		partials = append(partials, frost.PartialSignature{Index: index, Z: z})
	}
	return commitments, partials, nil
}

func normalizeParticipants(participants []string) ([]string, error) {
	ids := make([]string, 0, len(participants))
	for _, id := range participants {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			return nil, session.NewError(session.CodeInvalidParticipantCount, "", "participant ids must not be empty")
		}
		ids = append(ids, trimmed)
	}
	if len(lo.Uniq(ids)) != len(ids) {
		return nil, session.NewError(session.CodeInvalidParticipantCount, "", "participant ids must be unique")
	}
	if len(ids) < MinParticipants || len(ids) > MaxParticipants {
		return nil, session.NewError(session.CodeInvalidParticipantCount, "",
			fmt.Sprintf("between %d and %d participants are required, got %d", MinParticipants, MaxParticipants, len(ids)))
	}
	return ids, nil
}

type roundOneBody struct {
	MessageHash  string    `json:"message_hash"`
	Participants []string  `json:"participants"`
	Threshold    int       `json:"threshold"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type roundTwoBody struct {
	MessageHash string                  `json:"message_hash"`
	Signers     []string                `json:"signers"`
	Commitments []frost.NonceCommitment `json:"commitments"`
}

type failureBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (s *Service) notifyRoundOneOpen(ctx context.Context, sess *session.Session) {
	body, err := json.Marshal(roundOneBody{
		MessageHash:  sess.MessageHash,
		Participants: sess.Participants,
		Threshold:    sess.Threshold,
		ExpiresAt:    sess.ExpiresAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("Failed to encode the round 1 notification")
		return
	}
	messaging.Fanout(ctx, s.messenger, sess.Participants, messaging.Envelope{
		Kind:   messaging.KindRoundOneOpen,
		Ref:    sess.SessionID,
		Body:   body,
		SentAt: s.clock.Now(),
	})
}

// notifyRoundTwoOpen 把冻结的承诺列表发给签名者集合
func (s *Service) notifyRoundTwoOpen(ctx context.Context, sess *session.Session) {
	commitments, _, err := frostInputsRoundTwo(sess)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("Failed to assemble the round 2 notification")
		return
	}
	body, err := json.Marshal(roundTwoBody{
		MessageHash: sess.MessageHash,
		Signers:     sess.SignerIDs(),
		Commitments: commitments,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("Failed to encode the round 2 notification")
		return
	}
	messaging.Fanout(ctx, s.messenger, sess.SignerIDs(), messaging.Envelope{
		Kind:   messaging.KindRoundTwoOpen,
		Ref:    sess.SessionID,
		Body:   body,
		SentAt: s.clock.Now(),
	})
}

func (s *Service) notifySessionFailed(ctx context.Context, sess *session.Session) {
	body, err := json.Marshal(failureBody{Status: string(sess.Status), Reason: sess.ErrorReason})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("Failed to encode the failure notification")
		return
	}
	messaging.Fanout(ctx, s.messenger, sess.Participants, messaging.Envelope{
		Kind:   messaging.KindSessionFailed,
		Ref:    sess.SessionID,
		Body:   body,
		SentAt: s.clock.Now(),
	})
}

// frostInputsRoundTwo 与 frostInputs 相同，但允许部分签名表尚未填充
func frostInputsRoundTwo(sess *session.Session) ([]frost.NonceCommitment, []string, error) {
	signers := sess.SignerIDs()
	commitments := make([]frost.NonceCommitment, 0, len(signers))
	for _, id := range signers {
		index, ok := sess.ParticipantIndex(id)
		if !ok {
			return nil, nil, errors.Errorf("committer %s is missing from the participant roster", id)
		}
		commitment := sess.NonceCommitments[id]
		commitments = append(commitments, frost.NonceCommitment{
			Index:   index,
			Hiding:  commitment.Hiding,
			Binding: commitment.Binding,
		})
	}
	return commitments, signers, nil
}
