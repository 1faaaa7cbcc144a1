package messaging

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// FanoutResult 批量通知的投递统计
type FanoutResult struct {
	Notified int
	Total    int
}

// Fanout 并发地向所有参与者投递同一信封。
// 单个参与者投递失败只记录日志并计入统计，不会中断其余投递。
func Fanout(ctx context.Context, m Messenger, participantIDs []string, env Envelope) FanoutResult {
	ids := lo.Uniq(participantIDs)

	var wg sync.WaitGroup
	errCh := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(participantID string) {
			defer wg.Done()
			if err := m.SendToParticipant(ctx, participantID, env); err != nil {
				log.Warn().
					Err(err).
					Str("participant_id", participantID).
					Str("kind", env.Kind).
					Str("ref", env.Ref).
					Msg("Failed to notify participant")
				errCh <- err
			}
		}(id)
	}
	wg.Wait()
	close(errCh)

	failed := len(errCh)
	result := FanoutResult{Notified: len(ids) - failed, Total: len(ids)}
	if failed > 0 {
		log.Warn().
			Int("notified", result.Notified).
			Int("total", result.Total).
			Str("kind", env.Kind).
			Str("ref", env.Ref).
			Msg("Partial notification delivery")
	}
	return result
}
