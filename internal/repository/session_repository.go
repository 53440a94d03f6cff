package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intranet_admin/pkg/log"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix     = "session:"
	SessionEventsChannel = "session_events"

	SessionEventSignedIn  = "signed_in"
	SessionEventSignedOut = "signed_out"
)

// ErrSessionNotFound 表示会话不存在或已过期。
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord 是服务端保存的会话，ID 与令牌的 jti 相同。
type SessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionEvent 是跨实例广播的会话变化。Origin 是发布实例的标识。
type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Origin    string `json:"origin"`
}

// SessionRepository 保存会话并广播会话事件。
type SessionRepository interface {
	Save(ctx context.Context, rec SessionRecord, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
	Publish(ctx context.Context, event SessionEvent) error
	// Subscribe 阻塞接收事件，直到 ctx 结束。
	Subscribe(ctx context.Context, fn func(SessionEvent)) error
}

type redisSessionRepository struct {
	rdb *redis.Client
}

func NewSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func (r *redisSessionRepository) Save(ctx context.Context, rec SessionRecord, ttl time.Duration) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.rdb.Set(ctx, sessionKeyPrefix+rec.ID, payload, ttl).Err()
}

func (r *redisSessionRepository) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	raw, err := r.rdb.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (r *redisSessionRepository) Publish(ctx context.Context, event SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	return r.rdb.Publish(ctx, SessionEventsChannel, payload).Err()
}

func (r *redisSessionRepository) Subscribe(ctx context.Context, fn func(SessionEvent)) error {
	pubsub := r.rdb.Subscribe(ctx, SessionEventsChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", SessionEventsChannel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warnw("discarding malformed session event", "payload", msg.Payload, "error", err)
				continue
			}
			fn(event)
		}
	}
}
