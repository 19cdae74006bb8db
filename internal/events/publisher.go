package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 事件类型常量（下游通知/看板服务按此消费，投递语义不在本服务范围内）
const (
	EventHouseItemReported  = "house_item.reported"
	EventHouseItemResolved  = "house_item.resolved"
	EventGateCheckCompleted = "gate_check.completed"
	EventLotPhaseAdvanced   = "lot.phase_advanced"
)

// Publisher 领域事件发布接口
// 发布失败不影响主流程，实现方只记日志不上抛
type Publisher interface {
	Publish(ctx context.Context, event string, fields map[string]any)
}

// StreamPublisher 基于 Redis Streams 的实现（XADD）
type StreamPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

func NewStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, logger: logger}
}

var _ Publisher = (*StreamPublisher)(nil)

func (p *StreamPublisher) Publish(ctx context.Context, event string, fields map[string]any) {
	values := map[string]any{"event": event}
	for k, v := range fields {
		values[k] = stringify(v)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("event", event),
			zap.Error(err))
	}
}

// stringify Redis Streams 的值需要是字符串
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%f", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// NopPublisher 空实现（Redis 未配置或测试场景）
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, string, map[string]any) {}
