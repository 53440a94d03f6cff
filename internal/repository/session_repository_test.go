package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// 需要真实的 Redis，设置 TEST_REDIS_ADDR 后运行
func newRedisSessionRepo(t *testing.T) SessionRepository {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return NewSessionRepository(rdb)
}

func TestSessionRepository_SaveGetDelete(t *testing.T) {
	repo := newRedisSessionRepo(t)
	ctx := context.Background()
	id := uuid.NewString()

	rec := SessionRecord{ID: id, UserID: "u1", Email: "a@example.com", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := repo.Save(ctx, rec, time.Minute); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.UserID != "u1" || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestSessionRepository_PublishSubscribe(t *testing.T) {
	repo := newRedisSessionRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan SessionEvent, 1)
	go func() {
		_ = repo.Subscribe(ctx, func(e SessionEvent) { received <- e })
	}()

	want := SessionEvent{Type: SessionEventSignedOut, SessionID: uuid.NewString(), UserID: "u1", Origin: "test"}
	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case got := <-received:
			if got != want {
				t.Fatalf("unexpected event: %+v", got)
			}
			return
		case <-ticker.C:
			// 订阅建立前发布的消息会丢失，重复发布直到收到
			if err := repo.Publish(ctx, want); err != nil {
				t.Fatalf("Publish() error: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for session event")
		}
	}
}
