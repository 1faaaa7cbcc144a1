package publisher

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LogRelay 把已签名事件打进日志的开发用中继
type LogRelay struct{}

// PublishEvent 记录事件并回传其标识，事件没有 id 字段时临时生成一个
func (LogRelay) PublishEvent(_ context.Context, event json.RawMessage) (string, error) {
	var envelope struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(event, &envelope)

	id := envelope.ID
	if id == "" {
		id = uuid.New().String()
	}
	log.Info().
		RawJSON("event", event).
		Str("event_id", id).
		Msg("Published signed event to the log relay")
	return id, nil
}
