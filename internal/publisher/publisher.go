// Package publisher 把验证通过的聚合签名合并进事件模板并移交中继发布。
// 发布失败不回滚签名，会话停留在可发布状态等待重试。
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/messaging"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
)

// publishAttempts 落账发布结果时允许的比较替换重试次数
const publishAttempts = 3

// RelayPublisher 事件中继协作方
type RelayPublisher interface {
	// PublishEvent 发布已签名事件，返回中继侧的最终事件标识
	PublishEvent(ctx context.Context, event json.RawMessage) (string, error)
}

// Service 发布移交
type Service struct {
	store     session.Store
	relay     RelayPublisher
	messenger messaging.Messenger
	clock     time2.Clock
}

// NewService ...
func NewService(store session.Store, relay RelayPublisher, messenger messaging.Messenger, clock time2.Clock) *Service {
	return &Service{store: store, relay: relay, messenger: messenger, clock: clock}
}

// Publish 发布一个已验证的会话。
// 已完成的会话直接返回既有结果，发布失败返回可重试的 PublishFailed。
func (s *Service) Publish(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == session.StatusCompleted {
		return sess, nil
	}
	if sess.Status != session.StatusVerifying || sess.Aggregated == nil {
		return nil, session.NewError(session.CodePublishFailed, sessionID,
			fmt.Sprintf("session is not ready for publication, status is %s", sess.Status))
	}

	event, err := MergeSignature(sess)
	if err != nil {
		return nil, session.WrapError(session.CodePublishFailed, sessionID, err,
			"failed to assemble the signed event")
	}

	artifactID, err := s.relay.PublishEvent(ctx, event)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Relay rejected the signed event")
		if _, recordErr := s.update(ctx, sessionID, func(next *session.Session) {
			next.ErrorReason = fmt.Sprintf("%s: %s", session.CodePublishFailed, err.Error())
		}); recordErr != nil {
			log.Warn().Err(recordErr).Str("session_id", sessionID).Msg("Failed to record the publication failure")
		}
		return nil, session.WrapError(session.CodePublishFailed, sessionID, err, "relay publish attempt failed")
	}

	updated, err := s.update(ctx, sessionID, func(next *session.Session) {
		next.Status = session.StatusCompleted
		next.FinalArtifactID = artifactID
		next.ErrorReason = ""
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", sessionID).
		Str("final_artifact_id", updated.FinalArtifactID).
		Msg("Signing session completed")
	s.notifyCompleted(ctx, updated)
	return updated, nil
}

// MergeSignature 把聚合签名合并进事件模板，模板里已有的 sig 会被覆盖
func MergeSignature(sess *session.Session) (json.RawMessage, error) {
	if sess.Aggregated == nil {
		return nil, errors.New("session has no aggregated signature")
	}
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(sess.EventTemplate), &event); err != nil {
		return nil, errors.Wrap(err, "event template is not a JSON object")
	}
	event["sig"] = sess.Aggregated.R + sess.Aggregated.S
	if _, ok := event["id"]; !ok {
		event["id"] = sess.MessageHash
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode the signed event")
	}
	return raw, nil
}

// update 以比较替换落账发布结果，并发完成的会话直接返回既有结果
func (s *Service) update(ctx context.Context, sessionID string, apply func(*session.Session)) (*session.Session, error) {
	var lastErr error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		current, err := s.store.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if current.Status == session.StatusCompleted {
			return current, nil
		}
		if current.Status != session.StatusVerifying {
			return nil, session.NewError(session.CodePublishFailed, sessionID,
				fmt.Sprintf("session is no longer publishable, status is %s", current.Status))
		}

		next, err := current.Clone()
		if err != nil {
			return nil, err
		}
		apply(next)
		next.UpdatedAt = s.clock.Now().UTC()

		if err := s.store.CompareAndSwap(ctx, current.UpdatedAt, next); err != nil {
			if errors.Is(err, session.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return nil, errors.Wrap(err, "failed to persist the publication state")
		}
		return next, nil
	}
	return nil, session.WrapError(session.CodeConcurrencyConflict, sessionID, lastErr,
		"too many concurrent updates while recording publication")
}

type completionBody struct {
	FinalArtifactID string `json:"final_artifact_id"`
	Signature       string `json:"signature"`
}

func (s *Service) notifyCompleted(ctx context.Context, sess *session.Session) {
	if s.messenger == nil {
		return
	}
	signature := ""
	if sess.Aggregated != nil {
		signature = sess.Aggregated.R + sess.Aggregated.S
	}
	body, err := json.Marshal(completionBody{
		FinalArtifactID: sess.FinalArtifactID,
		Signature:       signature,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("Failed to encode the completion notification")
		return
	}
	messaging.Fanout(ctx, s.messenger, sess.Participants, messaging.Envelope{
		Kind:   messaging.KindSessionCompleted,
		Ref:    sess.SessionID,
		Body:   body,
		SentAt: s.clock.Now(),
	})
}
