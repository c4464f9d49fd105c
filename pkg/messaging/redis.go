package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Publisher 이벤트 발행 인터페이스
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Event 채널로 발행되는 메시지 봉투
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// RedisPublisher Redis pub/sub 기반 Publisher 구현체
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisClient Redis 클라이언트를 생성하고 연결을 확인합니다.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis 연결 실패: %w", err)
	}
	return client, nil
}

// NewRedisPublisher 주어진 채널로 이벤트를 발행하는 Publisher를 생성합니다.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish 이벤트를 JSON으로 직렬화하여 발행합니다.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("메시지 직렬화 실패: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("메시지 발행 실패 (%s): %w", p.channel, err)
	}
	return nil
}

// Close Redis 클라이언트 종료
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher Redis가 설정되지 않았을 때 사용하는 Publisher
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
