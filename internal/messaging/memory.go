package messaging

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// ChannelMessenger 进程内通知通道，开发与测试用。
// 没有订阅者时投递直接丢弃，订阅者缓冲满时也丢弃而不是阻塞协调器。
type ChannelMessenger struct {
	mu   sync.RWMutex
	subs map[string][]chan Envelope
}

// NewChannelMessenger ...
func NewChannelMessenger() *ChannelMessenger {
	return &ChannelMessenger{subs: make(map[string][]chan Envelope)}
}

// SendToParticipant ...
func (m *ChannelMessenger) SendToParticipant(ctx context.Context, participantID string, env Envelope) error {
	m.mu.RLock()
	receivers := make([]chan Envelope, len(m.subs[participantID]))
	copy(receivers, m.subs[participantID])
	m.mu.RUnlock()

	for _, ch := range receivers {
		select {
		case ch <- env:
		default:
			log.Warn().Str("participant_id", participantID).Str("kind", env.Kind).Msg("Dropping envelope, subscriber buffer is full")
		}
	}
	return nil
}

// Subscribe ...
func (m *ChannelMessenger) Subscribe(ctx context.Context, participantID string) (<-chan Envelope, error) {
	ch := make(chan Envelope, 16)

	m.mu.Lock()
	m.subs[participantID] = append(m.subs[participantID], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		receivers := m.subs[participantID]
		for i, existing := range receivers {
			if existing == ch {
				m.subs[participantID] = append(receivers[:i], receivers[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
