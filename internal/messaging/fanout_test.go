package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) SendToParticipant(ctx context.Context, participantID string, env Envelope) error {
	args := m.Called(ctx, participantID, env)
	return args.Error(0)
}

func (m *mockMessenger) Subscribe(ctx context.Context, participantID string) (<-chan Envelope, error) {
	args := m.Called(ctx, participantID)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan Envelope), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestFanoutCountsPartialFailures(t *testing.T) {
	ctx := context.Background()
	env := Envelope{Kind: KindRoundOneOpen, Ref: "session-1", SentAt: time.Now()}

	m := new(mockMessenger)
	m.On("SendToParticipant", mock.Anything, "guardian-a", env).Return(nil)
	m.On("SendToParticipant", mock.Anything, "guardian-b", env).Return(errors.New("wallet offline"))
	m.On("SendToParticipant", mock.Anything, "guardian-c", env).Return(nil)

	result := Fanout(ctx, m, []string{"guardian-a", "guardian-b", "guardian-c"}, env)
	assert.Equal(t, 2, result.Notified)
	assert.Equal(t, 3, result.Total)
	m.AssertExpectations(t)
}

func TestFanoutDeduplicatesRecipients(t *testing.T) {
	ctx := context.Background()
	env := Envelope{Kind: KindApprovalRequested, Ref: "approval-1", SentAt: time.Now()}

	m := new(mockMessenger)
	m.On("SendToParticipant", mock.Anything, "guardian-a", env).Return(nil).Once()

	result := Fanout(ctx, m, []string{"guardian-a", "guardian-a", "guardian-a"}, env)
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, result.Total)
	m.AssertExpectations(t)
}

func TestChannelMessengerDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewChannelMessenger()
	inbox, err := m.Subscribe(ctx, "guardian-a")
	require.NoError(t, err)

	env := Envelope{Kind: KindRoundTwoOpen, Ref: "session-2", SentAt: time.Now()}
	require.NoError(t, m.SendToParticipant(ctx, "guardian-a", env))

	select {
	case got := <-inbox:
		assert.Equal(t, KindRoundTwoOpen, got.Kind)
		assert.Equal(t, "session-2", got.Ref)
	case <-time.After(time.Second):
		t.Fatal("envelope was not delivered")
	}

	// 没有订阅者的参与者投递不报错
	require.NoError(t, m.SendToParticipant(ctx, "guardian-unknown", env))
}

func TestChannelMessengerUnsubscribesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	m := NewChannelMessenger()
	inbox, err := m.Subscribe(ctx, "guardian-a")
	require.NoError(t, err)

	cancel()

	// 通道最终关闭
	select {
	case _, open := <-inbox:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after context cancellation")
	}
}
